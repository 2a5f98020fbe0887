//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package client provides a MediaWiki search API client.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is used when Search gets a non-positive limit.
const DefaultLimit = 5

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client talks to the api.php endpoint of a MediaWiki site.
type Client struct {
	endpoint string
	ua       string
	hc       *http.Client
}

// New creates a client for endpoint. A nil httpClient means
// http.DefaultClient.
func New(endpoint, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, ua: userAgent, hc: httpClient}
}

// SearchResponse is the body of a list=search query.
type SearchResponse struct {
	Query struct {
		SearchInfo struct {
			TotalHits int `json:"totalhits"`
		} `json:"searchinfo"`
		Search []SearchResult `json:"search"`
	} `json:"query"`
	Error *APIError `json:"error,omitempty"`
}

// SearchResult is one hit. Snippet is HTML.
type SearchResult struct {
	NS        int    `json:"ns"`
	Title     string `json:"title"`
	PageID    int    `json:"pageid"`
	WordCount int    `json:"wordcount"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
}

// APIError is the error object MediaWiki returns with a 200 status.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki %s: %s", e.Code, e.Info)
}

// Search runs a full text search returning at most limit hits.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search: empty query")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out SearchResponse
	err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"format":   {"json"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
		"srprop":   {"snippet|timestamp|wordcount"},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

// get issues one API call and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("search: parse response: %w", err)
	}
	return nil
}
