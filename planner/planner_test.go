//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

func nodes(ids ...string) []graph.Node {
	out := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, graph.Node{ID: id, Kind: graph.KindSearch})
	}
	return out
}

func edge(from, to string) graph.Edge {
	return graph.Edge{SourceID: from, TargetID: to}
}

func TestCompute_Levels(t *testing.T) {
	g := graph.New(nodes("a", "b", "c", "d", "e"), []graph.Edge{
		edge("a", "c"),
		edge("b", "c"),
		edge("c", "d"),
		edge("a", "d"),
	})
	plan, err := Compute(g)
	require.NoError(t, err)
	assert.Equal(t, Plan{{"a", "b", "e"}, {"c"}, {"d"}}, plan)
	assert.Equal(t, []string{"a", "b", "e", "c", "d"}, plan.NodeIDs())
}

func TestCompute_InsertionOrderTieBreak(t *testing.T) {
	g := graph.New(nodes("z", "y", "x"), nil)
	plan, err := Compute(g)
	require.NoError(t, err)
	assert.Equal(t, Plan{{"z", "y", "x"}}, plan)
}

func TestCompute_Deterministic(t *testing.T) {
	g := graph.New(nodes("a", "b", "c", "d"), []graph.Edge{edge("a", "d"), edge("c", "b")})
	first, err := Compute(g)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compute(g.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRemaining_SkipsSettledNodes(t *testing.T) {
	g := graph.New(nodes("a", "b", "c"), []graph.Edge{edge("a", "b"), edge("b", "c")})
	done := map[string]bool{"a": true}
	plan, err := Remaining(g, func(id string) bool { return done[id] })
	require.NoError(t, err)
	assert.Equal(t, Plan{{"b"}, {"c"}}, plan)
}

func TestRemaining_AfterMutation(t *testing.T) {
	g := graph.New(nodes("plan"), nil)
	g.AddNode(graph.Node{ID: "s1", Kind: graph.KindSearch})
	g.AddNode(graph.Node{ID: "a1", Kind: graph.KindAnswer})
	g.AddEdge(edge("s1", "a1"))
	plan, err := Remaining(g, func(id string) bool { return id == "plan" })
	require.NoError(t, err)
	assert.Equal(t, Plan{{"s1"}, {"a1"}}, plan)
}

func TestRemaining_Cycle(t *testing.T) {
	g := graph.New(nodes("a", "b"), []graph.Edge{edge("a", "b"), edge("b", "a")})
	_, err := Compute(g)
	reason, ok := graph.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, graph.ReasonCycle, reason)
}

func TestCompute_Empty(t *testing.T) {
	plan, err := Compute(graph.New(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, plan)
}
