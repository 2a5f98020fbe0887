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
	"errors"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/function"
)

// Registry names of the tools.
const (
	AnswerName     = "answer"
	StructuredName = "structured"
	EvalName       = "eval"
)

// ErrInvalidStructuredOutput is wrapped when a structured result is not a
// JSON object or misses a required property of the requested schema.
var ErrInvalidStructuredOutput = errors.New("invalid structured output")

const (
	answerSystemPrompt = "You are a precise research assistant. Answer the task using the given context. " +
		"If the context is insufficient, say what is missing."
	structuredSystemPrompt = "You extract structured data. Reply with a single JSON object and nothing else."
	evalSystemPrompt       = `You review the progress of a task graph and decide whether more work is needed.
Reply with a single JSON object of this shape and nothing else:
{"pass": bool, "addNodes": [{"id": string, "kind": string, "label": string, "prompt": string}],
 "addEdges": [{"sourceId": string, "targetId": string}], "removeNodes": [string], "removeEdges": [...]}
Kinds are search, fetch, summarize, answer, structured and eval. Set pass to true and leave
the lists empty when the work so far is sufficient. New node ids must be unique.`
)

// NewAnswerTool creates the tool for answer nodes.
func NewAnswerTool(m *Model) tool.Tool {
	return function.NewFunctionTool(
		func(ctx context.Context, args *tool.Args) (string, error) {
			return m.complete(ctx, answerSystemPrompt, userMessage(args), nil)
		},
		function.WithName(AnswerName),
		function.WithDescription("Answers the task from the dependency outputs."),
		function.WithInputSource(function.FromArgs),
	)
}

// NewStructuredTool creates the tool for structured nodes. The node config
// "schema" is forwarded as a JSON schema; without it any JSON object is
// accepted. The result is always a JSON object.
func NewStructuredTool(m *Model) tool.Tool {
	return function.NewFunctionTool(
		func(ctx context.Context, args *tool.Args) (string, error) {
			format := &responseFormat{jsonObject: true}
			schema, _ := args.Config["schema"].(map[string]any)
			if schema != nil {
				format.schema = schema
				format.schemaName = args.String("schema_name")
				if format.schemaName == "" {
					format.schemaName = "result"
				}
			}
			out, err := m.complete(ctx, structuredSystemPrompt, userMessage(args), format)
			if err != nil {
				return "", err
			}
			return validateObject(stripFence(out), schema)
		},
		function.WithName(StructuredName),
		function.WithDescription("Produces a JSON object, optionally following config.schema."),
		function.WithInputSource(function.FromArgs),
	)
}

// NewEvalTool creates the tool for eval nodes. Its result carries a
// graph.MutationRequest.
func NewEvalTool(m *Model) tool.Tool {
	return function.NewFunctionTool(
		func(ctx context.Context, args *tool.Args) (graph.MutationRequest, error) {
			var req graph.MutationRequest
			out, err := m.complete(ctx, evalSystemPrompt, userMessage(args), &responseFormat{jsonObject: true})
			if err != nil {
				return req, err
			}
			if err := json.Unmarshal([]byte(stripFence(out)), &req); err != nil {
				return req, fmt.Errorf("decode mutation request: %w", err)
			}
			return req, nil
		},
		function.WithName(EvalName),
		function.WithDescription("Judges progress and proposes graph edits."),
		function.WithInputSource(function.FromArgs),
	)
}

// NewTools returns the answer, structured and eval tools bound to m.
func NewTools(m *Model) []tool.Tool {
	return []tool.Tool{NewAnswerTool(m), NewStructuredTool(m), NewEvalTool(m)}
}

func userMessage(args *tool.Args) string {
	var sb strings.Builder
	if args.Goal != "" {
		fmt.Fprintf(&sb, "Goal: %s\n\n", args.Goal)
	}
	if args.Prompt != "" {
		fmt.Fprintf(&sb, "Task: %s\n\n", args.Prompt)
	}
	if in := args.JoinedInputs(); in != "" {
		fmt.Fprintf(&sb, "Context:\n%s\n", in)
	}
	return strings.TrimSpace(sb.String())
}

// validateObject checks that out is a JSON object holding every top level
// property the schema marks as required, and returns it compacted.
func validateObject(out string, schema map[string]any) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(out), &obj); err != nil || obj == nil {
		return "", fmt.Errorf("%w: not a JSON object", ErrInvalidStructuredOutput)
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			key, _ := r.(string)
			if _, ok := obj[key]; !ok {
				return "", fmt.Errorf("%w: missing required property %q", ErrInvalidStructuredOutput, key)
			}
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
