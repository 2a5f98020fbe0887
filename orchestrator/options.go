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
	"fmt"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore"
	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
)

// FailurePolicy decides what happens to the rest of the graph after a node
// ends in error.
type FailurePolicy string

const (
	// SkipDependents leaves the direct and transitive dependents of a failed
	// node pending. Unrelated branches keep running.
	SkipDependents FailurePolicy = "skip_dependents"
	// HaltAll starts no further level once any node failed.
	HaltAll FailurePolicy = "halt_all"
	// ContinueAll runs dependents anyway. References to failed nodes
	// resolve to the empty string.
	ContinueAll FailurePolicy = "continue_all"
)

// ParseFailurePolicy accepts the policy names case insensitively, with
// dashes or underscores.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	p := FailurePolicy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch p {
	case SkipDependents, HaltAll, ContinueAll:
		return p, nil
	case "":
		return SkipDependents, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

const defaultConcurrency = 8

// options holds the configuration of an Orchestrator.
type options struct {
	concurrency      int
	nodeTimeout      time.Duration
	runTimeout       time.Duration
	failurePolicy    FailurePolicy
	maxAttempts      int
	retryInterval    time.Duration
	toolNames        map[graph.Kind]string
	persistArtifacts bool
}

var defaultOptions = options{
	concurrency:   defaultConcurrency,
	failurePolicy: SkipDependents,
	maxAttempts:   1,
	retryInterval: 100 * time.Millisecond,
}

// Option configures an Orchestrator.
type Option func(*options)

// WithConcurrency bounds how many nodes of one level run at once.
// Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithNodeTimeout bounds every tool call. Zero disables the bound.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.nodeTimeout = d
	}
}

// WithRunTimeout bounds a whole run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(o *options) {
		o.runTimeout = d
	}
}

// WithFailurePolicy sets the failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) {
		o.failurePolicy = p
	}
}

// WithRetry retries failed tool calls up to maxAttempts in total, with
// exponential backoff starting at initialInterval. Unknown tools,
// cancellation and timeouts are never retried.
func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(o *options) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if initialInterval > 0 {
			o.retryInterval = initialInterval
		}
	}
}

// WithToolNames overrides the tool used for a node kind. Kinds that are not
// listed use the tool named like the kind.
func WithToolNames(names map[graph.Kind]string) Option {
	return func(o *options) {
		o.toolNames = make(map[graph.Kind]string, len(names))
		for k, v := range names {
			o.toolNames[k] = v
		}
	}
}

// WithPersistArtifacts writes the final run documents to the context store
// of the run, if it has one.
func WithPersistArtifacts(persist bool) Option {
	return func(o *options) {
		o.persistArtifacts = persist
	}
}

// runOptions holds the per run collaborators.
type runOptions struct {
	trace  *runtrace.Trace
	memory memory.Memory
	store  contextstore.Store
	runID  string
}

// RunOption configures a single run.
type RunOption func(*runOptions)

// WithTrace records the run into t instead of a fresh trace.
func WithTrace(t *runtrace.Trace) RunOption {
	return func(o *runOptions) {
		o.trace = t
	}
}

// WithMemory uses m as the run memory instead of a fresh one.
func WithMemory(m memory.Memory) RunOption {
	return func(o *runOptions) {
		o.memory = m
	}
}

// WithContextStore hands a durable store to the tools of the run.
func WithContextStore(s contextstore.Store) RunOption {
	return func(o *runOptions) {
		o.store = s
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(o *runOptions) {
		o.runID = id
	}
}
