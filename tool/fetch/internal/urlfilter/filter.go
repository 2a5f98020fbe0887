//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package urlfilter decides which URLs the fetch tool may retrieve.
package urlfilter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Filter holds allow and block patterns. A pattern is a host, matching the
// host and its subdomains, optionally followed by a path prefix, e.g.
// "example.com" or "example.com/docs".
type Filter struct {
	allowed []string
	blocked []string
}

// New creates a filter. An empty allow list allows every host.
func New(allowed, blocked []string) *Filter {
	return &Filter{allowed: allowed, blocked: blocked}
}

// Check returns an error if rawURL may not be fetched.
func (f *Filter) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.New("url has no host")
	}
	for _, p := range f.blocked {
		if Match(u, p) {
			return fmt.Errorf("url matches blocked pattern %s", p)
		}
	}
	if len(f.allowed) == 0 {
		return nil
	}
	for _, p := range f.allowed {
		if Match(u, p) {
			return nil
		}
	}
	return errors.New("url does not match any allowed pattern")
}

// Match reports whether u matches pattern.
func Match(u *url.URL, pattern string) bool {
	host, prefix := pattern, ""
	if idx := strings.Index(pattern, "/"); idx != -1 {
		host, prefix = pattern[:idx], pattern[idx:]
	}
	if !matchHost(u.Hostname(), host) {
		return false
	}
	if prefix == "" {
		return true
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	// "/doc" must not match "/docserver".
	return len(p) == len(prefix) || strings.HasSuffix(prefix, "/") || p[len(prefix)] == '/'
}

func matchHost(hostname, target string) bool {
	hostname = strings.ToLower(hostname)
	target = strings.ToLower(target)
	return hostname == target || strings.HasSuffix(hostname, "."+target)
}
