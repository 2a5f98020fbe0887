//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package summarize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

const doc = `# Go

Go is a language. It was designed at Google. It has goroutines.

Go compiles fast! Builds are cached.

## Tooling

The go command builds code. It also runs tests.

` + "```go\nfmt.Println(\"skip me.\")\n```\n"

func TestSummarize_RoundRobin(t *testing.T) {
	st := NewTool()
	require.Equal(t, Name, st.Name())

	res, err := st.Call(context.Background(), &tool.Args{Prompt: doc}, nil)
	require.NoError(t, err)
	want := "## Go\n" +
		"- Go is a language.\n" +
		"- It was designed at Google.\n" +
		"- Go compiles fast!\n" +
		"- Builds are cached.\n\n" +
		"## Tooling\n" +
		"- The go command builds code."
	assert.Equal(t, want, res.Output)
	assert.NotContains(t, res.Output, "skip me")
}

func TestSummarize_Budget(t *testing.T) {
	res, err := NewTool().Call(context.Background(), &tool.Args{
		Prompt: doc,
		Config: map[string]any{"max_sentences": 3},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "## Go\n- Go is a language.\n- Go compiles fast!\n\n## Tooling\n- The go command builds code.", res.Output)
}

func TestSummarize_Inputs(t *testing.T) {
	res, err := NewTool(WithMaxSentences(10), WithName("sum")).Call(context.Background(), &tool.Args{
		Inputs:     map[string]string{"a": "First *input* text. More.", "b": "Second input\nspans lines."},
		InputOrder: []string{"a", "b"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "- First input text.\n- More.\n- Second input spans lines.", res.Output)

	_, err = NewTool().Call(context.Background(), &tool.Args{}, nil)
	assert.Error(t, err)
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two?", "v1.2 is out"}, splitSentences("One. Two? v1.2 is out"))
	assert.Empty(t, splitSentences("   "))
}
