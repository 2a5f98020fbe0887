//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package tool

import "context"

// ContextKeyExecContext is the context key type for the ExecContext of a
// call. Adapters that only see a context, such as typed function tools,
// read it back with ExecContextFromContext.
type ContextKeyExecContext struct{}

// NewContext returns a copy of ctx carrying ec.
func NewContext(ctx context.Context, ec *ExecContext) context.Context {
	return context.WithValue(ctx, ContextKeyExecContext{}, ec)
}

// ExecContextFromContext retrieves the ExecContext from ctx.
// Returns the ExecContext and true if found, nil and false otherwise.
func ExecContextFromContext(ctx context.Context) (*ExecContext, bool) {
	ec, ok := ctx.Value(ContextKeyExecContext{}).(*ExecContext)
	return ec, ok && ec != nil
}
