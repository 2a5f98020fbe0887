//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package search provides the search tool backed by a MediaWiki search API,
// Wikipedia by default.
package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/function"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/search/internal/client"
)

// Name is the registry name of the tool.
const Name = "search"

const (
	defaultUserAgent  = "trpc-taskgraph-go-search/1.0"
	defaultTimeout    = 30 * time.Second
	defaultLanguage   = "en"
	defaultMaxResults = 5
)

type config struct {
	name       string
	baseURL    string
	pageURL    string
	userAgent  string
	httpClient *http.Client
	maxResults int
}

// Option configures the search tool.
type Option func(*config)

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLanguage switches to the Wikipedia of language, e.g. "de".
func WithLanguage(language string) Option {
	return func(c *config) {
		c.baseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
		c.pageURL = fmt.Sprintf("https://%s.wikipedia.org/wiki/", language)
	}
}

// WithBaseURL points the tool at another MediaWiki api.php endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
		c.pageURL = strings.TrimSuffix(baseURL, "/w/api.php") + "/wiki/"
	}
}

// WithMaxResults bounds the number of results.
func WithMaxResults(n int) Option {
	return func(c *config) {
		c.maxResults = n
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// NewTool creates the search tool.
//
// The query is the "query" config value, else the prompt, else the goal.
// The output is a markdown list with one "title: snippet" line per hit.
func NewTool(opts ...Option) tool.Tool {
	cfg := &config{
		name:       Name,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxResults: defaultMaxResults,
	}
	WithLanguage(defaultLanguage)(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	s := &searcher{
		client:     client.New(cfg.baseURL, cfg.userAgent, cfg.httpClient),
		pageURL:    cfg.pageURL,
		maxResults: cfg.maxResults,
	}
	return function.NewFunctionTool(
		s.search,
		function.WithName(cfg.name),
		function.WithDescription("Searches Wikipedia and lists matching articles with a snippet."),
		function.WithInputSource(function.FromArgs),
	)
}

type searcher struct {
	client     *client.Client
	pageURL    string
	maxResults int
}

func (s *searcher) search(ctx context.Context, args *tool.Args) (string, error) {
	query := strings.TrimSpace(args.String("query"))
	if query == "" {
		query = strings.TrimSpace(args.Prompt)
	}
	if query == "" {
		query = strings.TrimSpace(args.Goal)
	}
	limit := args.Int("limit", s.maxResults)
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	resp, err := s.client.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if ec, ok := tool.ExecContextFromContext(ctx); ok && ec.Trace != nil {
		ec.Trace.Info("search done", "query", query,
			"hits", len(resp.Query.Search), "total", resp.Query.SearchInfo.TotalHits)
	}
	if len(resp.Query.Search) == 0 {
		return fmt.Sprintf("No results for %q.", query), nil
	}
	var sb strings.Builder
	for i, r := range resp.Query.Search {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- %s: %s (%s)", r.Title, snippetText(r.Snippet), s.articleURL(r.Title))
	}
	return sb.String(), nil
}

func (s *searcher) articleURL(title string) string {
	return s.pageURL + strings.ReplaceAll(url.PathEscape(title), "%20", "_")
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// snippetText turns an HTML search snippet into one line of markdown.
func snippetText(snippet string) string {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	text, err := conv.ConvertString(snippet)
	if err != nil {
		text = tagPattern.ReplaceAllString(snippet, "")
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}
