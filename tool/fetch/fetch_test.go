//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/memory/inmemory"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just text"))
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_HTMLToMarkdown(t *testing.T) {
	srv := newServer(t)
	mem := inmemory.New()
	ec := &tool.ExecContext{NodeID: "f", Memory: mem, Trace: runtrace.New()}
	ft := NewTool()
	require.Equal(t, Name, ft.Name())

	res, err := ft.Call(context.Background(), &tool.Args{
		NodeID: "f",
		Config: map[string]any{"urls": []any{srv.URL + "/page", srv.URL + "/plain", srv.URL + "/page"}},
	}, ec)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "# Title")
	assert.Contains(t, res.Output, "**bold**")
	assert.Contains(t, res.Output, "just text")

	doc, ok := mem.GetDoc("f/" + srv.URL + "/page")
	require.True(t, ok)
	assert.Contains(t, doc, "# Title")
	assert.Len(t, mem.Docs(), 2)
}

func TestFetch_URLsFromPrompt(t *testing.T) {
	srv := newServer(t)
	res, err := NewTool().Call(context.Background(), &tool.Args{
		Prompt: "please read " + srv.URL + "/plain, thanks",
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "just text")
}

func TestFetch_PartialFailure(t *testing.T) {
	srv := newServer(t)
	trace := runtrace.New()
	ec := &tool.ExecContext{NodeID: "f", Memory: inmemory.New(), Trace: trace.ForNode("f")}
	res, err := NewTool().Call(context.Background(), &tool.Args{
		Config: map[string]any{"urls": srv.URL + "/plain " + srv.URL + "/missing " + srv.URL + "/image"},
	}, ec)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "HTTP status 404")
	assert.Contains(t, res.Output, "unsupported content type: image/png")
	assert.Equal(t, 2, trace.CountLevel(runtrace.LevelWarn))
}

func TestFetch_Errors(t *testing.T) {
	srv := newServer(t)
	_, err := NewTool().Call(context.Background(), &tool.Args{Prompt: "no links here"}, nil)
	assert.Error(t, err)

	_, err = NewTool().Call(context.Background(), &tool.Args{
		Config: map[string]any{"urls": []any{srv.URL + "/missing"}},
	}, nil)
	assert.ErrorContains(t, err, "all 1 fetches failed")

	blocked := NewTool(WithAllowedDomains("example.com"))
	_, err = blocked.Call(context.Background(), &tool.Args{
		Config: map[string]any{"urls": []any{srv.URL + "/plain"}},
	}, nil)
	assert.ErrorContains(t, err, "allowed pattern")
}

func TestFetch_Limits(t *testing.T) {
	srv := newServer(t)
	ft := NewTool(WithMaxURLs(1), WithMaxContentLength(4), WithName("web"))
	assert.Equal(t, "web", ft.Name())
	res, err := ft.Call(context.Background(), &tool.Args{
		Config: map[string]any{"urls": []any{srv.URL + "/plain", srv.URL + "/page"}},
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "just")
	assert.NotContains(t, res.Output, "just text")
	assert.NotContains(t, res.Output, "/page")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aé", 3))
}
