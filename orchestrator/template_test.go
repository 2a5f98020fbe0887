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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

func newTestResolver(policy FailurePolicy) *resolver {
	g := graph.New([]graph.Node{
		{ID: "plain", Kind: graph.KindSearch},
		{ID: "json", Kind: graph.KindStructured},
		{ID: "v1.2", Kind: graph.KindSearch},
		{ID: "broken", Kind: graph.KindSearch},
		{ID: "waiting", Kind: graph.KindAnswer},
		{ID: "goal", Kind: graph.KindAnswer},
		{ID: "peer", Kind: graph.KindSearch},
	}, nil)
	book := newRecordBook(time.Now)
	book.ensure(g.Nodes)
	for id, out := range map[string]string{
		"plain": "hello",
		"json":  `{"answer":{"text":"42"},"tags":["a","b"]}`,
		"v1.2":  "dotted",
		"goal":  "shadowed",
		"peer":  "not mine",
	} {
		book.start(id, 0, "t")
		book.complete(id, out, nil)
	}
	book.start("broken", 0, "t")
	book.fail("broken", errors.New("down"))
	upstream := map[string]bool{"plain": true, "json": true, "v1.2": true, "broken": true, "waiting": true, "goal": true}
	return &resolver{goal: "the goal", deps: "a\n\nb", graph: g, upstream: upstream, records: book, policy: policy}
}

func TestResolver_Expand(t *testing.T) {
	r := newTestResolver(SkipDependents)
	cases := []struct {
		in, want string
	}{
		{"no refs", "no refs"},
		{"${goal}", "the goal"},
		{"deps: ${deps}", "deps: a\n\nb"},
		{"${plain} world", "hello world"},
		{"${ plain }", "hello"},
		{"${json.answer.text}", "42"},
		{"${json.tags.1}", "b"},
		{"${json.tags.#}", "2"},
		{"${v1.2}", "dotted"},
		{"${missing}", "${missing}"},
		{"$plain", "$plain"},
	}
	for _, c := range cases {
		got, err := r.expand(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestResolver_Errors(t *testing.T) {
	r := newTestResolver(SkipDependents)
	for _, in := range []string{"${broken}", "${waiting}", "${plain.field}", "${json.nope}", "${peer}"} {
		_, err := r.expand(in)
		assert.Error(t, err, in)
	}
}

func TestResolver_ContinueAll(t *testing.T) {
	r := newTestResolver(ContinueAll)
	got, err := r.expand("[${broken}]")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	_, err = r.expand("${waiting}")
	assert.Error(t, err)
}

func TestResolver_RejectsNodesOutsideAncestry(t *testing.T) {
	for _, policy := range []FailurePolicy{SkipDependents, ContinueAll} {
		r := newTestResolver(policy)
		_, err := r.expand("${peer}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not upstream")
		_, err = r.expand("${peer.field}")
		assert.Error(t, err)
	}
}

func TestResolver_ExpandConfig(t *testing.T) {
	r := newTestResolver(SkipDependents)
	in := map[string]any{
		"q":     "${plain}",
		"n":     3,
		"list":  []any{"${json.answer.text}", true},
		"inner": map[string]any{"g": "${goal}"},
	}
	out, err := r.expandConfig(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"q":     "hello",
		"n":     3,
		"list":  []any{"42", true},
		"inner": map[string]any{"g": "the goal"},
	}, out)
	assert.Equal(t, "${plain}", in["q"])

	out, err = r.expandConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestErrorTypeOf(t *testing.T) {
	assert.Equal(t, ErrorType(""), ErrorTypeOf(nil))
	assert.Equal(t, ErrorTypeTimeout, ErrorTypeOf(&TimeoutError{NodeID: "n"}))
	assert.Equal(t, ErrorTypeCancellation, ErrorTypeOf(&CancellationError{Err: errors.New("stop")}))
	assert.Equal(t, ErrorTypeMutation, ErrorTypeOf(&MutationError{NodeID: "n", Err: errors.New("x")}))
	assert.Equal(t, ErrorTypeToolExecution, ErrorTypeOf(&ToolExecutionError{NodeID: "n", Err: errors.New("x")}))
	assert.Equal(t, ErrorTypeValidation, ErrorTypeOf(&graph.ValidationError{Reason: graph.ReasonCycle}))
	assert.Equal(t, ErrorTypeToolExecution, ErrorTypeOf(errors.New("other")))
}

func TestParseFailurePolicy(t *testing.T) {
	for in, want := range map[string]FailurePolicy{
		"":                SkipDependents,
		"skip_dependents": SkipDependents,
		"HALT-ALL":        HaltAll,
		" continue_all ":  ContinueAll,
	} {
		got, err := ParseFailurePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFailurePolicy("never")
	assert.Error(t, err)
}

func TestRecordBook(t *testing.T) {
	b := newRecordBook(time.Now)
	b.ensure([]graph.Node{{ID: "a", Kind: graph.KindSearch}, {ID: "b", Kind: graph.KindEval}})

	assert.False(t, b.started("a"))
	b.start("a", 0, "search")
	assert.True(t, b.started("a"))
	assert.Equal(t, 1, b.attempt("a"))
	assert.True(t, b.complete("a", "out", nil))
	assert.False(t, b.fail("a", errors.New("late")), "terminal records stay put")

	b.block("b", "blocked by x")
	assert.True(t, b.settled("b"))
	assert.False(t, b.started("b"))
	b.remove("a")
	_, ok := b.get("a")
	assert.True(t, ok, "started records are never removed")
	b.remove("b")
	_, ok = b.get("b")
	assert.False(t, ok)

	snap := b.snapshot()
	*snap["a"].StartedAt = time.Time{}
	rec, _ := b.get("a")
	assert.False(t, rec.StartedAt.IsZero())
	assert.Equal(t, StatusComplete, rec.Status)
	assert.Equal(t, "out", rec.Output)
	assert.Equal(t, 0, rec.Level)
}
