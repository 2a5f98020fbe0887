//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addOutput struct {
	Sum int `json:"sum"`
}

func TestFunctionTool_FromConfig(t *testing.T) {
	ft := NewFunctionTool(func(_ context.Context, in addInput) (addOutput, error) {
		return addOutput{Sum: in.A + in.B}, nil
	}, WithName("add"), WithDescription("adds"))

	assert.Equal(t, "add", ft.Name())
	assert.Equal(t, "adds", ft.Description())

	res, err := ft.Call(context.Background(), &tool.Args{
		Config: map[string]any{"a": float64(2), "b": 3},
	}, &tool.ExecContext{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum":5}`, res.Output)
	assert.Equal(t, addOutput{Sum: 5}, res.Data)
}

func TestFunctionTool_FromPrompt(t *testing.T) {
	ft := NewFunctionTool(func(_ context.Context, in addInput) (string, error) {
		return strings.Repeat("x", in.A), nil
	}, WithName("rep"), WithInputSource(FromPrompt))

	res, err := ft.Call(context.Background(), &tool.Args{Prompt: `{"a":3}`}, nil)
	require.NoError(t, err)
	assert.Equal(t, "xxx", res.Output)
	assert.Nil(t, res.Data)

	_, err = ft.Call(context.Background(), &tool.Args{Prompt: `not json`}, nil)
	assert.Error(t, err)
}

func TestFunctionTool_FromArgs(t *testing.T) {
	ft := NewFunctionTool(func(_ context.Context, in *tool.Args) (string, error) {
		return in.NodeID + ":" + in.Prompt, nil
	}, WithName("raw"), WithInputSource(FromArgs))

	res, err := ft.Call(context.Background(), &tool.Args{NodeID: "n", Prompt: "p"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "n:p", res.Output)

	bad := NewFunctionTool(func(_ context.Context, in addInput) (string, error) {
		return "", nil
	}, WithName("bad"), WithInputSource(FromArgs))
	_, err = bad.Call(context.Background(), &tool.Args{}, nil)
	assert.Error(t, err)
}

func TestFunctionTool_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	ft := NewFunctionTool(func(context.Context, addInput) (string, error) {
		return "", boom
	}, WithName("fail"))
	_, err := ft.Call(context.Background(), &tool.Args{}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_ExecContextInContext(t *testing.T) {
	ft := NewFunctionTool(func(ctx context.Context, _ struct{}) (string, error) {
		ec, ok := tool.ExecContextFromContext(ctx)
		if !ok {
			return "", errors.New("no exec context")
		}
		return ec.RunID + "/" + ec.NodeID, nil
	}, WithName("ctx"))

	res, err := ft.Call(context.Background(), &tool.Args{}, &tool.ExecContext{RunID: "r", NodeID: "n"})
	require.NoError(t, err)
	assert.Equal(t, "r/n", res.Output)

	_, err = ft.Call(context.Background(), &tool.Args{}, nil)
	assert.True(t, strings.Contains(err.Error(), "no exec context"))
}
