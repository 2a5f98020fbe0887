//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package function turns typed Go functions into tools.
package function

import (
	"context"
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

var _ tool.Tool = (*FunctionTool[struct{}, struct{}])(nil)

// FunctionTool decodes a node's resolved input into I, calls fn and encodes
// O as the node output. A string O is used verbatim, anything else is
// JSON encoded and also returned as Result.Data.
type FunctionTool[I, O any] struct {
	name        string
	description string
	source      InputSource
	fn          func(context.Context, I) (O, error)
	unmarshaler unmarshaler
}

// InputSource selects what is decoded into the input type.
type InputSource int

const (
	// FromConfig decodes the node config object. This is the default.
	FromConfig InputSource = iota
	// FromPrompt decodes the prompt as a JSON document.
	FromPrompt
	// FromArgs hands over the whole *tool.Args. I must be *tool.Args.
	FromArgs
)

// Option is a function that configures a FunctionTool.
type Option func(*functionToolOptions)

type functionToolOptions struct {
	name        string
	description string
	source      InputSource
	unmarshaler unmarshaler
}

// WithName sets the registry name of the tool.
func WithName(name string) Option {
	return func(opts *functionToolOptions) {
		opts.name = name
	}
}

// WithDescription sets the description of the tool.
func WithDescription(description string) Option {
	return func(opts *functionToolOptions) {
		opts.description = description
	}
}

// WithInputSource sets where the input is decoded from.
func WithInputSource(src InputSource) Option {
	return func(opts *functionToolOptions) {
		opts.source = src
	}
}

// NewFunctionTool wraps fn.
func NewFunctionTool[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	options := &functionToolOptions{
		unmarshaler: &jsonUnmarshaler{},
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.name == "" {
		log.Warnf("FunctionTool: name is empty")
	}
	return &FunctionTool[I, O]{
		name:        options.name,
		description: options.description,
		source:      options.source,
		fn:          fn,
		unmarshaler: options.unmarshaler,
	}
}

// Name implements tool.Tool.
func (ft *FunctionTool[I, O]) Name() string {
	return ft.name
}

// Description returns the human readable description.
func (ft *FunctionTool[I, O]) Description() string {
	return ft.description
}

// Call implements tool.Tool.
// The ExecContext is reachable from fn through tool.ExecContextFromContext.
func (ft *FunctionTool[I, O]) Call(ctx context.Context, args *tool.Args, ec *tool.ExecContext) (*tool.Result, error) {
	input, err := ft.decode(args)
	if err != nil {
		return nil, fmt.Errorf("%s: decode input: %w", ft.name, err)
	}
	if ec != nil {
		ctx = tool.NewContext(ctx, ec)
	}
	out, err := ft.fn(ctx, input)
	if err != nil {
		return nil, err
	}
	if s, ok := any(out).(string); ok {
		return &tool.Result{Output: s}, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%s: encode output: %w", ft.name, err)
	}
	return &tool.Result{Output: string(b), Data: out}, nil
}

func (ft *FunctionTool[I, O]) decode(args *tool.Args) (I, error) {
	var input I
	switch ft.source {
	case FromArgs:
		v, ok := any(args).(I)
		if !ok {
			return input, fmt.Errorf("input type %T is not *tool.Args", input)
		}
		return v, nil
	case FromPrompt:
		if args.Prompt == "" {
			return input, nil
		}
		return input, ft.unmarshaler.Unmarshal([]byte(args.Prompt), &input)
	default:
		if len(args.Config) == 0 {
			return input, nil
		}
		b, err := json.Marshal(args.Config)
		if err != nil {
			return input, err
		}
		return input, ft.unmarshaler.Unmarshal(b, &input)
	}
}

type unmarshaler interface {
	Unmarshal([]byte, any) error
}

type jsonUnmarshaler struct{}

// Unmarshal unmarshals JSON data into the provided interface.
func (j *jsonUnmarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
