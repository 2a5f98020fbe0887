//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the capabilities the orchestrator invokes on behalf of
// nodes and the registry that resolves them by name.
//
// A tool is the only way a run touches the outside world. The orchestrator
// treats every tool as an opaque blocking call bounded by its context.
package tool

import (
	"context"

	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore"
	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
)

// Tool is a named capability.
type Tool interface {
	// Name is the registry key of the tool.
	Name() string
	// Call runs the tool. Implementations must return promptly once ctx is
	// done.
	Call(ctx context.Context, args *Args, ec *ExecContext) (*Result, error)
}

// Args is the resolved input of one node execution. Prompt and Config have
// had their ${...} references substituted.
type Args struct {
	NodeID string
	Kind   graph.Kind
	Label  string
	Goal   string
	Prompt string
	Config map[string]any
	// Inputs maps each direct dependency id to its output.
	Inputs map[string]string
	// InputOrder lists the keys of Inputs in graph insertion order.
	InputOrder []string
	// Attempt starts at 1 and grows with every retry.
	Attempt int
}

// Result is what a tool produced.
type Result struct {
	// Output is the node output seen by downstream references.
	Output string
	// Data carries a typed payload, e.g. a *graph.MutationRequest for
	// evaluation nodes.
	Data any
	// Artifacts are stored as run documents under their names.
	Artifacts map[string]string
}

// ExecContext exposes run scoped facilities to a tool. Cancellation is
// carried by the context passed to Call.
type ExecContext struct {
	RunID  string
	NodeID string
	// Memory is namespaced to NodeID.
	Memory memory.Memory
	Trace  runtrace.Recorder
	// Store is nil unless the run was given a context store.
	Store contextstore.Store
}

// Func adapts a plain function to the Tool interface.
type Func struct {
	ToolName string
	Fn       func(ctx context.Context, args *Args, ec *ExecContext) (*Result, error)
}

// Name implements Tool.
func (f *Func) Name() string { return f.ToolName }

// Call implements Tool.
func (f *Func) Call(ctx context.Context, args *Args, ec *ExecContext) (*Result, error) {
	return f.Fn(ctx, args, ec)
}

// NewFunc wraps fn as a tool named name.
func NewFunc(name string, fn func(ctx context.Context, args *Args, ec *ExecContext) (*Result, error)) Tool {
	return &Func{ToolName: name, Fn: fn}
}
