//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/orchestrator"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/llm"
)

type outputLine struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runDriver(t *testing.T, args ...string) (int, outputLine) {
	t.Helper()
	var stdout bytes.Buffer
	code := run(context.Background(), args, &stdout, io.Discard)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1, stdout.String())
	var out outputLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &out))
	return code, out
}

const summarySpec = `
goal: learn about goroutines
type: qa
graph:
  nodes:
    - id: notes
      kind: summarize
      prompt: "# Goroutines\n\nGoroutines are cheap threads. They are managed by the runtime."
    - id: final
      kind: answer
  edges:
    - sourceId: notes
      targetId: final
`

func TestRun_Final(t *testing.T) {
	code, out := runDriver(t, "-offline", "-spec", writeSpec(t, "task.yaml", summarySpec))
	require.Equal(t, 0, code)
	require.Equal(t, eventFinal, out.Event)

	var data finalData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.True(t, data.Success)
	assert.Contains(t, data.Result, "# learn about goroutines")
	assert.Contains(t, data.Result, "Goroutines are cheap threads.")
	assert.NotNil(t, data.Artifacts)
	assert.Positive(t, data.LogsCount)
}

func TestRun_NodeFailureExitsNonZero(t *testing.T) {
	spec := `{"goal":"g","graph":{"nodes":[{"id":"x","kind":"unknown_kind"}],"edges":[]}}`
	code, out := runDriver(t, "-offline", "-spec", writeSpec(t, "task.json", spec))
	assert.Equal(t, 1, code)
	require.Equal(t, eventFinal, out.Event)
	var data finalData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.False(t, data.Success)
}

func TestRun_InvalidGraph(t *testing.T) {
	spec := `{"goal":"g","graph":{"nodes":[{"id":"a","kind":"answer"},{"id":"a","kind":"answer"}]}}`
	code, out := runDriver(t, "-offline", "-spec", writeSpec(t, "task.json", spec))
	assert.Equal(t, 1, code)
	require.Equal(t, eventError, out.Event)
	var data errorData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.NotEmpty(t, data.Message)
}

func TestRun_MissingSpecFile(t *testing.T) {
	code, out := runDriver(t, "-offline", "-spec", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 1, code)
	assert.Equal(t, eventError, out.Event)
}

func TestRun_BadFlags(t *testing.T) {
	code, out := runDriver(t)
	assert.Equal(t, 2, code)
	assert.Equal(t, eventError, out.Event)

	code, _ = runDriver(t, "-spec", "x.json", "-failure-policy", "sometimes")
	assert.Equal(t, 2, code)

	code, _ = runDriver(t, "-spec", "x.json", "-otel-protocol", "carrier-pigeon")
	assert.Equal(t, 2, code)
}

func TestRun_PersistsArtifactsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "plain page body")
	}))
	defer page.Close()

	spec := fmt.Sprintf(`{"goal":"g","graph":{"nodes":[`+
		`{"id":"f","kind":"fetch","config":{"urls":[%q]}},`+
		`{"id":"a","kind":"answer"}],`+
		`"edges":[{"sourceId":"f","targetId":"a"}]}}`, page.URL)
	code, out := runDriver(t, "-offline", "-spec", writeSpec(t, "task.json", spec),
		"-redis-url", "redis://"+mr.Addr()+"/0")
	require.Equal(t, 0, code, string(out.Data))

	var data finalData
	require.NoError(t, json.Unmarshal(out.Data, &data))
	name := "f/" + page.URL
	require.Contains(t, data.Artifacts, name)
	assert.Contains(t, data.Artifacts[name], "plain page body")

	var persisted []string
	for _, k := range mr.Keys() {
		if !strings.HasPrefix(k, "taskgraph:runs/") || !strings.Contains(k, "/artifacts/f/") {
			continue
		}
		v, err := mr.Get(k)
		require.NoError(t, err)
		assert.Equal(t, data.Artifacts[name], v)
		persisted = append(persisted, k)
	}
	assert.Len(t, persisted, 1)
}

func TestParseFlags_Options(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-spec", "t.json", "-concurrency", "3", "-timeout", "2s",
		"-failure-policy", "halt_all", "-retries", "2", "-log-level", "debug",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.concurrency)
	assert.Equal(t, orchestrator.HaltAll, cfg.failurePolicy)
	assert.Equal(t, "debug", cfg.logLevel)
	assert.Len(t, cfg.orchestratorOptions(), 6)
}

func TestDefaultRegistry(t *testing.T) {
	t.Setenv(llm.EnvAPIKey, "")
	reg, err := defaultRegistry(&config{})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"fetch", "search", "summarize", llm.AnswerName, llm.StructuredName, llm.EvalName},
		reg.Names())

	t.Setenv(llm.EnvAPIKey, "test-key")
	reg, err = defaultRegistry(&config{model: "m"})
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 6)
}
