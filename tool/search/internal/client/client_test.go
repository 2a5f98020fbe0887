//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "golang", q.Get("srsearch"))
		assert.Equal(t, "3", q.Get("srlimit"))
		assert.Equal(t, "ua", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"query":{"searchinfo":{"totalhits":7},"search":[{"title":"Go","pageid":1,"snippet":"A <span>language</span>"}]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "ua", srv.Client())
	resp, err := c.Search(context.Background(), "golang", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Query.SearchInfo.TotalHits)
	require.Len(t, resp.Query.Search, 1)
	assert.Equal(t, "Go", resp.Query.Search[0].Title)
}

func TestSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("srsearch") {
		case "status":
			http.Error(w, "down", http.StatusServiceUnavailable)
		case "api":
			_, _ = w.Write([]byte(`{"error":{"code":"badvalue","info":"bad"}}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "ua", srv.Client())

	_, err := c.Search(context.Background(), " ", 1)
	assert.Error(t, err)
	_, err = c.Search(context.Background(), "status", 1)
	assert.ErrorContains(t, err, "503")
	_, err = c.Search(context.Background(), "api", 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "badvalue", apiErr.Code)
	_, err = c.Search(context.Background(), "garbage", 1)
	assert.ErrorContains(t, err, "parse")
}
