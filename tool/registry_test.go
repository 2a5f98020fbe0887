//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(name string) Tool {
	return NewFunc(name, func(_ context.Context, args *Args, _ *ExecContext) (*Result, error) {
		return &Result{Output: name + ":" + args.Prompt}, nil
	})
}

func TestRegistry_Invoke(t *testing.T) {
	r, err := NewRegistry(echo("search"), echo("answer"))
	require.NoError(t, err)

	res, err := r.Invoke(context.Background(), "search", &Args{Prompt: "go"}, &ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "search:go", res.Output)
	assert.Equal(t, []string{"answer", "search"}, r.Names())
}

func TestRegistry_NotFound(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), "missing", &Args{}, &ExecContext{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.Name)
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestRegistry_Duplicates(t *testing.T) {
	r, err := NewRegistry(echo("a"))
	require.NoError(t, err)

	err = r.Register(echo("b"), echo("a"))
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, []string{"a"}, r.Names(), "failed registration must add nothing")

	err = r.Register(echo("c"), echo("c"))
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Error(t, r.Register(echo("")))
}

func TestRegistry_Filter(t *testing.T) {
	r, err := NewRegistry(echo("web/search"), echo("web/fetch"), echo("llm/answer"), echo("summarize"))
	require.NoError(t, err)

	f, err := r.Filter("web/*", "summ*")
	require.NoError(t, err)
	assert.Equal(t, []string{"summarize", "web/fetch", "web/search"}, f.Names())

	_, err = f.Lookup("llm/answer")
	assert.True(t, IsNotFound(err))

	all, err := r.Filter()
	require.NoError(t, err)
	assert.Len(t, all.Names(), 4)

	_, err = r.Filter("[")
	assert.Error(t, err)
}

func TestArgs_Accessors(t *testing.T) {
	a := &Args{
		Config: map[string]any{
			"n":    float64(3),
			"m":    7,
			"s":    "12",
			"flag": true,
			"list": []any{"a", 1},
			"urls": "u1 u2",
			"obj":  map[string]any{"x": 1},
		},
		Inputs:     map[string]string{"a": "A", "b": "", "c": "C"},
		InputOrder: []string{"c", "b", "a"},
	}
	assert.Equal(t, 3, a.Int("n", 0))
	assert.Equal(t, 7, a.Int("m", 0))
	assert.Equal(t, 12, a.Int("s", 0))
	assert.Equal(t, 5, a.Int("missing", 5))
	assert.True(t, a.Bool("flag"))
	assert.Equal(t, []string{"a", "1"}, a.Strings("list"))
	assert.Equal(t, []string{"u1", "u2"}, a.Strings("urls"))
	assert.Equal(t, "12", a.String("s"))
	assert.Equal(t, "", a.String("missing"))
	assert.Equal(t, "C\n\nA", a.JoinedInputs())
}
