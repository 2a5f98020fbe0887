//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package orchestrator

import (
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
)

// RunResult is the outcome of one run. It is returned for every run,
// including failed ones, so metrics are always available for inspection.
type RunResult struct {
	RunID   string `json:"runId"`
	Success bool   `json:"success"`
	// Result is the output of ResultNode.
	Result     string            `json:"result,omitempty"`
	ResultNode string            `json:"resultNode,omitempty"`
	Artifacts  map[string]string `json:"artifacts,omitempty"`
	// Metrics holds one record per node of the final graph.
	Metrics map[string]ExecutionRecord `json:"metrics"`
	// Levels lists the node ids of every executed level, in order.
	Levels [][]string `json:"levels,omitempty"`
	// Graph is the live graph at the end of the run.
	Graph       *graph.Graph `json:"graph,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorType   ErrorType    `json:"errorType,omitempty"`
	LogsCount   int          `json:"logsCount"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`

	Trace  *runtrace.Trace `json:"-"`
	Memory memory.Memory   `json:"-"`
}

// Executed returns the number of nodes that left pending.
func (r *RunResult) Executed() int {
	n := 0
	for _, rec := range r.Metrics {
		if rec.Status != StatusPending {
			n++
		}
	}
	return n
}

// selectResult picks the node whose output is the run result. Among
// candidates of one rule the latest wins, by level then insertion order.
func selectResult(g *graph.Graph, metrics map[string]ExecutionRecord, resultNode string) (string, string) {
	if rec, ok := metrics[resultNode]; ok && resultNode != "" && rec.Status == StatusComplete {
		return rec.Output, resultNode
	}
	rules := []func(graph.Node) bool{
		func(n graph.Node) bool { return configBool(n.Config[configResult]) },
		func(n graph.Node) bool { return n.Kind == graph.KindAnswer },
		func(n graph.Node) bool { return n.Kind != graph.KindEval },
	}
	for _, match := range rules {
		best, bestLevel := "", -1
		for _, n := range g.Nodes {
			rec, ok := metrics[n.ID]
			if !ok || rec.Status != StatusComplete || !match(n) {
				continue
			}
			// Nodes are visited in insertion order, so >= keeps the later one.
			if rec.Level >= bestLevel {
				best, bestLevel = n.ID, rec.Level
			}
		}
		if best != "" {
			return metrics[best].Output, best
		}
	}
	return "", ""
}

func configBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(strings.TrimSpace(b))
		return ok
	default:
		return false
	}
}
