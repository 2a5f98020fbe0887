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
	"context"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

// ErrorType classifies the error attached to a record or a run.
type ErrorType string

// Error types.
const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeToolExecution ErrorType = "tool_execution"
	ErrorTypeMutation      ErrorType = "mutation"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeCancellation  ErrorType = "cancellation"
)

// ErrInvalidSpec is wrapped by errors about run constraints that cannot be
// honored.
var ErrInvalidSpec = errors.New("invalid task spec")

// ToolExecutionError reports a tool call that failed, panicked or returned
// a malformed result. Unknown tools surface as a ToolExecutionError wrapping
// a *tool.NotFoundError.
type ToolExecutionError struct {
	NodeID string
	Tool   string
	Err    error
}

// Error implements error.
func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("node %q: tool %q: %v", e.NodeID, e.Tool, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ToolExecutionError) Unwrap() error { return e.Err }

// MutationError reports a graph edit proposed by an evaluation node that was
// discarded.
type MutationError struct {
	NodeID string
	Err    error
}

// Error implements error.
func (e *MutationError) Error() string {
	return fmt.Sprintf("node %q: mutation rejected: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MutationError) Unwrap() error { return e.Err }

// TimeoutError reports a node or, with an empty NodeID, a run that exceeded
// its deadline.
type TimeoutError struct {
	NodeID  string
	Timeout time.Duration
}

// Error implements error.
func (e *TimeoutError) Error() string {
	scope := "run"
	if e.NodeID != "" {
		scope = fmt.Sprintf("node %q", e.NodeID)
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %s", scope, e.Timeout)
	}
	return scope + " deadline exceeded"
}

// Is matches context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// CancellationError reports a caller initiated abort.
type CancellationError struct {
	NodeID string
	Err    error
}

// Error implements error.
func (e *CancellationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %q cancelled: %v", e.NodeID, e.Err)
	}
	return fmt.Sprintf("run cancelled: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *CancellationError) Unwrap() error { return e.Err }

// ErrorTypeOf classifies err. It returns an empty type for nil.
func ErrorTypeOf(err error) ErrorType {
	var (
		toolErr     *ToolExecutionError
		mutationErr *MutationError
		timeoutErr  *TimeoutError
		cancelErr   *CancellationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return ErrorTypeTimeout
	case errors.As(err, &cancelErr):
		return ErrorTypeCancellation
	case errors.As(err, &mutationErr):
		return ErrorTypeMutation
	case errors.As(err, &toolErr):
		return ErrorTypeToolExecution
	case errors.Is(err, graph.ErrInvalidGraph), errors.Is(err, ErrInvalidSpec):
		return ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancellation
	default:
		return ErrorTypeToolExecution
	}
}

// contextError converts the state of a done context into a run level error.
func contextError(ctx context.Context, nodeID string, timeout time.Duration) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{NodeID: nodeID, Timeout: timeout}
	}
	if cause := context.Cause(ctx); cause != nil {
		err = cause
	}
	return &CancellationError{NodeID: nodeID, Err: err}
}
