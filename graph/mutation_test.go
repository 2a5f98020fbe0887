//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedSet(ids ...string) StartedFunc {
	set := make(map[string]bool)
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestApply_AddsNodesAndEdges(t *testing.T) {
	g := New([]Node{{ID: "plan", Kind: KindEval}}, nil)
	req := &MutationRequest{
		AddNodes: []Node{
			{ID: "s1", Kind: KindSearch},
			{ID: "a1", Kind: KindAnswer},
		},
		AddEdges: []Edge{{SourceID: "s1", TargetID: "a1"}},
	}
	out, err := Apply(g, startedSet("plan"), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"plan", "s1", "a1"}, out.NodeIDs())
	assert.Equal(t, 1, g.Len(), "input graph must not change")
}

func TestApply_RejectsCycleWholesale(t *testing.T) {
	g := New([]Node{
		{ID: "e", Kind: KindEval},
		{ID: "x", Kind: KindSearch},
		{ID: "y", Kind: KindAnswer},
	}, []Edge{{SourceID: "x", TargetID: "y"}})
	req := &MutationRequest{
		AddNodes: []Node{{ID: "z", Kind: KindSearch}},
		AddEdges: []Edge{{SourceID: "y", TargetID: "x"}},
	}
	out, err := Apply(g, startedSet("e"), req)
	require.Error(t, err)
	assert.Nil(t, out)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonCycle, reason)
	assert.False(t, g.HasNode("z"))
}

func TestApply_FrozenNodes(t *testing.T) {
	g := New([]Node{
		{ID: "done", Kind: KindSearch},
		{ID: "todo", Kind: KindAnswer},
	}, []Edge{{SourceID: "done", TargetID: "todo"}})
	started := startedSet("done")

	_, err := Apply(g, started, &MutationRequest{RemoveNodes: []string{"done"}})
	assert.True(t, errors.Is(err, ErrFrozenNode))

	_, err = Apply(g, started, &MutationRequest{
		AddNodes: []Node{{ID: "n", Kind: KindSearch}},
		AddEdges: []Edge{{SourceID: "n", TargetID: "done"}},
	})
	assert.True(t, errors.Is(err, ErrFrozenNode))

	out, err := Apply(g, started, &MutationRequest{
		AddNodes: []Node{{ID: "n", Kind: KindSearch}},
		AddEdges: []Edge{{SourceID: "n", TargetID: "todo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"done", "n"}, out.Predecessors("todo"))
}

func TestApply_RemovalsMustExist(t *testing.T) {
	g := diamond()
	_, err := Apply(g, nil, &MutationRequest{RemoveNodes: []string{"nope"}})
	var ee *EditError
	require.ErrorAs(t, err, &ee)

	_, err = Apply(g, nil, &MutationRequest{RemoveEdges: []Edge{{SourceID: "a", TargetID: "d"}}})
	require.ErrorAs(t, err, &ee)

	out, err := Apply(g, nil, &MutationRequest{
		RemoveEdges: []Edge{{SourceID: "c", TargetID: "d"}},
		RemoveNodes: []string{"c"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, out.NodeIDs())
}

func TestApply_DuplicateAcrossRequests(t *testing.T) {
	g := New([]Node{{ID: "e1", Kind: KindEval}, {ID: "e2", Kind: KindEval}}, nil)
	r1 := &MutationRequest{AddNodes: []Node{{ID: "s", Kind: KindSearch}}}
	r2 := &MutationRequest{AddNodes: []Node{{ID: "s", Kind: KindSearch}}}
	_, err := Apply(g, nil, r1, r2)
	reason, _ := ReasonOf(err)
	assert.Equal(t, ReasonDuplicateID, reason)
}

func TestMutationRequest_JSON(t *testing.T) {
	raw := `{"pass":false,"addNodes":[{"id":"s1","kind":"search","label":"S"}],` +
		`"addEdges":[{"sourceId":"s1","targetId":"a1"}]}`
	var req MutationRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.False(t, req.Pass)
	assert.Equal(t, KindSearch, req.AddNodes[0].Kind)
	assert.Equal(t, Edge{SourceID: "s1", TargetID: "a1"}, req.AddEdges[0])
	assert.False(t, req.IsEmpty())
	assert.True(t, (&MutationRequest{Pass: true}).IsEmpty())
}
