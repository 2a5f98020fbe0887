//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package llm

import (
	"context"
	"encoding/json"
	"strings"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/function"
)

// NewOfflineTools returns answer, structured and eval tools that work
// without a model. The answer composes the goal and the dependency
// outputs, the structured result wraps them in a JSON object, and the
// evaluation always passes without edits.
func NewOfflineTools() []tool.Tool {
	answer := function.NewFunctionTool(
		func(_ context.Context, args *tool.Args) (string, error) {
			parts := []string{}
			if head := firstNonEmpty(args.Prompt, args.Goal); head != "" {
				parts = append(parts, "# "+head)
			}
			if in := args.JoinedInputs(); in != "" {
				parts = append(parts, in)
			}
			return strings.Join(parts, "\n\n"), nil
		},
		function.WithName(AnswerName),
		function.WithInputSource(function.FromArgs),
	)
	structured := function.NewFunctionTool(
		func(_ context.Context, args *tool.Args) (string, error) {
			obj := map[string]any{"goal": args.Goal, "inputs": args.Inputs}
			if args.Prompt != "" {
				obj["prompt"] = args.Prompt
			}
			b, err := json.Marshal(obj)
			return string(b), err
		},
		function.WithName(StructuredName),
		function.WithInputSource(function.FromArgs),
	)
	eval := function.NewFunctionTool(
		func(context.Context, *tool.Args) (graph.MutationRequest, error) {
			return graph.MutationRequest{Pass: true}, nil
		},
		function.WithName(EvalName),
		function.WithInputSource(function.FromArgs),
	)
	return []tool.Tool{answer, structured, eval}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
