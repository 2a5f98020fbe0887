//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package fetch provides the tool that retrieves web pages for fetch nodes.
//
// URLs come from the node config ("urls", a list or a string) or, when the
// config has none, from the http(s) words of the prompt. HTML pages are
// converted to markdown. Every page is stored as a run document named
// "<node>/<url>".
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/fetch/internal/urlfilter"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/function"
)

// Name is the registry name of the tool.
const Name = "fetch"

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxURLs   = 10
	defaultUserAgent = "trpc-taskgraph-go/fetch"
)

// Option configures the fetch tool.
type Option func(*config)

type config struct {
	name             string
	httpClient       *http.Client
	userAgent        string
	maxURLs          int
	maxContentLength int
	allowedDomains   []string
	blockedDomains   []string
}

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithMaxURLs bounds how many URLs one node may fetch.
func WithMaxURLs(n int) Option {
	return func(c *config) {
		c.maxURLs = n
	}
}

// WithMaxContentLength truncates every page to limit bytes.
// 0 means unlimited.
func WithMaxContentLength(limit int) Option {
	return func(c *config) {
		c.maxContentLength = limit
	}
}

// WithAllowedDomains restricts fetching to URLs matching one of the
// patterns. See urlfilter for the pattern syntax.
func WithAllowedDomains(domains ...string) Option {
	return func(c *config) {
		c.allowedDomains = domains
	}
}

// WithBlockedDomains rejects URLs matching one of the patterns.
func WithBlockedDomains(domains ...string) Option {
	return func(c *config) {
		c.blockedDomains = domains
	}
}

// Page is the outcome of one URL.
type Page struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewTool creates the fetch tool.
func NewTool(opts ...Option) tool.Tool {
	cfg := &config{
		name:       Name,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		maxURLs:    defaultMaxURLs,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	f := &fetcher{
		client:           cfg.httpClient,
		userAgent:        cfg.userAgent,
		maxURLs:          cfg.maxURLs,
		maxContentLength: cfg.maxContentLength,
		filter:           urlfilter.New(cfg.allowedDomains, cfg.blockedDomains),
	}
	return function.NewFunctionTool(
		f.fetch,
		function.WithName(cfg.name),
		function.WithDescription("Fetches web pages and returns their content as markdown."),
		function.WithInputSource(function.FromArgs),
	)
}

type fetcher struct {
	client           *http.Client
	userAgent        string
	maxURLs          int
	maxContentLength int
	filter           *urlfilter.Filter
}

func (f *fetcher) fetch(ctx context.Context, args *tool.Args) (string, error) {
	urls := targetURLs(args)
	if len(urls) == 0 {
		return "", errors.New("no urls to fetch")
	}
	if f.maxURLs > 0 && len(urls) > f.maxURLs {
		urls = urls[:f.maxURLs]
	}

	pages := make([]Page, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			pages[i] = f.fetchOne(ctx, u)
		}(i, u)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ec, _ := tool.ExecContextFromContext(ctx)
	var (
		sb     strings.Builder
		failed int
	)
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n", p.URL)
		if p.Error != "" {
			failed++
			fmt.Fprintf(&sb, "error: %s", p.Error)
			if ec != nil && ec.Trace != nil {
				ec.Trace.Warn("fetch failed", "url", p.URL, "error", p.Error)
			}
			continue
		}
		sb.WriteString(p.Content)
		if ec != nil && ec.Memory != nil {
			if err := ec.Memory.PutDoc(memory.NamespacedKey(ec.NodeID, p.URL), p.Content); err != nil && ec.Trace != nil {
				ec.Trace.Warn("page not stored", "url", p.URL, "error", err.Error())
			}
		}
	}
	if failed == len(pages) {
		return "", fmt.Errorf("all %d fetches failed: %s", failed, pages[0].Error)
	}
	return sb.String(), nil
}

func (f *fetcher) fetchOne(ctx context.Context, rawURL string) Page {
	page := Page{URL: rawURL}
	if err := f.filter.Check(rawURL); err != nil {
		page.Error = err.Error()
		return page
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		page.Error = err.Error()
		return page
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		page.Error = err.Error()
		return page
	}
	defer resp.Body.Close()

	page.StatusCode = resp.StatusCode
	page.ContentType, _, _ = mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		page.Error = fmt.Sprintf("HTTP status %d", resp.StatusCode)
		return page
	}

	var content string
	switch {
	case page.ContentType == "text/html" || page.ContentType == "application/xhtml+xml":
		content, err = htmlToMarkdown(resp.Body)
	case isText(page.ContentType):
		var b []byte
		b, err = io.ReadAll(resp.Body)
		content = string(b)
	default:
		err = fmt.Errorf("unsupported content type: %s", page.ContentType)
	}
	if err != nil {
		page.Error = err.Error()
		return page
	}
	if f.maxContentLength > 0 && len(content) > f.maxContentLength {
		content = truncate(content, f.maxContentLength)
	}
	page.Content = content
	return page
}

// targetURLs returns the deduplicated URLs of a node.
func targetURLs(args *tool.Args) []string {
	candidates := args.Strings("urls")
	if len(candidates) == 0 {
		for _, w := range strings.Fields(args.Prompt) {
			if strings.HasPrefix(w, "http://") || strings.HasPrefix(w, "https://") {
				candidates = append(candidates, strings.TrimRight(w, ".,;)"))
			}
		}
	}
	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, u := range candidates {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func isText(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml":
		return true
	default:
		return false
	}
}

func htmlToMarkdown(r io.Reader) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return conv.ConvertString(string(body))
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i, r := range s {
		if i+utf8.RuneLen(r) > n {
			return s[:i]
		}
	}
	return s
}
