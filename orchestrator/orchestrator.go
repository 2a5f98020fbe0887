//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package orchestrator runs task graphs.
//
// A run validates the graph, plans it into dependency levels and executes
// the levels one after another. Nodes of a level run concurrently on a
// bounded worker pool. After each level the outputs of evaluation nodes are
// applied as graph edits, and the remaining graph is planned again when an
// edit was committed.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	oteltrace "go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore"
	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	itelemetry "trpc.group/trpc-go/trpc-taskgraph-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory/inmemory"
	"trpc.group/trpc-go/trpc-taskgraph-go/planner"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
	"trpc.group/trpc-go/trpc-taskgraph-go/taskspec"
	"trpc.group/trpc-go/trpc-taskgraph-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

const persistTimeout = 5 * time.Second

// Orchestrator executes task specs against a tool registry. It is safe for
// concurrent use; every Run has its own state.
type Orchestrator struct {
	registry *tool.Registry
	opts     options
	now      func() time.Time
	// beforeLevel is called before each level is scheduled.
	beforeLevel func(ctx context.Context, level int)
}

// New creates an Orchestrator.
func New(registry *tool.Registry, opts ...Option) *Orchestrator {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if registry == nil {
		registry, _ = tool.NewRegistry()
	}
	return &Orchestrator{registry: registry, opts: o, now: time.Now}
}

// Registry returns the tool registry.
func (o *Orchestrator) Registry() *tool.Registry {
	return o.registry
}

// Run executes spec. The returned result is never nil. The error is non-nil
// only for run level failures: an invalid spec, a run timeout or
// cancellation. Node failures are reported through the result metrics.
func (o *Orchestrator) Run(ctx context.Context, spec *taskspec.TaskSpec, opts ...RunOption) (*RunResult, error) {
	ro := runOptions{}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.runID == "" {
		ro.runID = uuid.NewString()
	}
	if ro.trace == nil {
		ro.trace = runtrace.New(runtrace.WithLogger(log.Default), runtrace.WithClock(o.now))
	}
	if ro.memory == nil {
		ro.memory = inmemory.New()
	}
	if spec == nil {
		spec = &taskspec.TaskSpec{}
	}
	r := &run{
		o:        o,
		id:       ro.runID,
		spec:     spec,
		live:     spec.Graph.Clone(),
		records:  newRecordBook(o.now),
		trace:    ro.trace,
		memory:   ro.memory,
		store:    ro.store,
		registry: o.registry,
		opts:     o.opts,
	}
	return r.execute(ctx)
}

// run is the state of one Run call. Only the run goroutine writes live.
type run struct {
	o          *Orchestrator
	id         string
	spec       *taskspec.TaskSpec
	live       *graph.Graph
	records    *recordBook
	trace      *runtrace.Trace
	memory     memory.Memory
	store      contextstore.Store
	registry   *tool.Registry
	opts       options
	resultNode string
	pool       *ants.Pool
	levels     [][]string
	started    time.Time
}

func (r *run) execute(ctx context.Context) (*RunResult, error) {
	r.started = r.o.now()
	ctx, span := trace.Tracer.Start(ctx, itelemetry.RunSpanName(r.spec.Type))
	defer span.End()
	itelemetry.TraceRunStart(span, r.id, r.spec.Goal, r.spec.Type, r.live.Len())
	log.InfofContext(ctx, "run %s: start, goal %q, %d node(s)", r.id, r.spec.Goal, r.live.Len())
	r.trace.Info("run started", "runId", r.id, "goal", r.spec.Goal, "nodes", r.live.Len())

	r.records.ensure(r.live.Nodes)
	if err := r.configure(); err != nil {
		return r.finish(ctx, span, err)
	}
	if err := r.live.Validate(); err != nil {
		r.trace.Error("graph rejected", "error", err.Error())
		return r.finish(ctx, span, err)
	}

	if r.opts.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.runTimeout)
		defer cancel()
	}
	pool, err := ants.NewPool(r.opts.concurrency)
	if err != nil {
		return r.finish(ctx, span, fmt.Errorf("create worker pool: %w", err))
	}
	defer pool.Release()
	r.pool = pool

	plan, err := planner.Compute(r.live)
	if err != nil {
		return r.finish(ctx, span, err)
	}
	halted := false
	var runErr error
	for index := 0; len(plan) > 0; index++ {
		if r.o.beforeLevel != nil {
			r.o.beforeLevel(ctx, index)
		}
		if ctx.Err() != nil {
			runErr = contextError(ctx, "", r.opts.runTimeout)
			break
		}
		level := plan[0]
		outcomes := r.executeLevel(ctx, index, level)
		r.levels = append(r.levels, append([]string(nil), level...))
		mutated := r.applyMutations(ctx, outcomes)
		if ctx.Err() != nil {
			runErr = contextError(ctx, "", r.opts.runTimeout)
			break
		}
		if r.opts.failurePolicy == HaltAll && r.records.anyFailed() {
			halted = true
			r.trace.Warn("run halted after node failure")
			break
		}
		if !mutated {
			plan = plan[1:]
			continue
		}
		if plan, err = planner.Remaining(r.live, r.records.settled); err != nil {
			runErr = err
			break
		}
	}

	reason := ""
	switch {
	case runErr != nil:
		reason = "run aborted: " + runErr.Error()
	case halted:
		reason = "run halted after node failure"
	}
	if reason != "" {
		for _, id := range r.live.NodeIDs() {
			r.records.note(id, reason)
		}
	}
	return r.finish(ctx, span, runErr)
}

// configure applies the task spec constraints on top of the orchestrator options.
func (r *run) configure() error {
	s := r.spec
	if n, ok := s.Int(taskspec.ConstraintMaxConcurrency); ok && n > 0 {
		r.opts.concurrency = n
	}
	if d, ok := s.Duration(taskspec.ConstraintNodeTimeoutMS); ok {
		r.opts.nodeTimeout = d
	}
	if d, ok := s.Duration(taskspec.ConstraintTimeoutMS); ok {
		r.opts.runTimeout = d
	}
	if p := s.String(taskspec.ConstraintFailurePolicy); p != "" {
		policy, err := ParseFailurePolicy(p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		r.opts.failurePolicy = policy
	}
	r.resultNode = s.String(taskspec.ConstraintResultNode)
	if patterns := s.Strings(taskspec.ConstraintAllowedTools); len(patterns) > 0 {
		filtered, err := r.registry.Filter(patterns...)
		if err != nil {
			return fmt.Errorf("%w: allowed tools: %v", ErrInvalidSpec, err)
		}
		r.registry = filtered
	}
	return nil
}

func (r *run) finish(ctx context.Context, span oteltrace.Span, runErr error) (*RunResult, error) {
	metrics := r.records.snapshot()
	failed := r.records.anyFailed()
	success := runErr == nil && !failed
	result, resultNode := selectResult(r.live, metrics, r.resultNode)
	artifacts := r.memory.Docs()
	if r.opts.persistArtifacts {
		r.persist(ctx, artifacts)
	}

	errType := ErrorTypeOf(runErr)
	if runErr != nil {
		r.trace.Error("run failed", "error", runErr.Error(), "errorType", string(errType))
	}
	r.trace.Info("run finished", "success", success, "result", resultNode)

	res := &RunResult{
		RunID:       r.id,
		Success:     success,
		Result:      result,
		ResultNode:  resultNode,
		Artifacts:   artifacts,
		Metrics:     metrics,
		Levels:      r.levels,
		Graph:       r.live,
		ErrorType:   errType,
		LogsCount:   r.trace.Count(),
		StartedAt:   r.started,
		CompletedAt: r.o.now(),
		Trace:       r.trace,
		Memory:      r.memory,
	}
	if runErr != nil {
		res.Error = runErr.Error()
	}
	elapsed := res.CompletedAt.Sub(res.StartedAt)
	itelemetry.RecordRun(ctx, r.spec.Type, success, elapsed)
	itelemetry.TraceRunEnd(span, success, string(errType), runErr)
	if runErr != nil {
		log.WarnfContext(ctx, "run %s: failed after %s: %v", r.id, elapsed, runErr)
	} else {
		log.InfofContext(ctx, "run %s: finished in %s, success %t", r.id, elapsed, success)
	}
	return res, runErr
}

// persist copies the run documents into the context store. It runs after
// cancellation too, so it detaches from the run context.
func (r *run) persist(ctx context.Context, artifacts map[string]string) {
	if r.store == nil || len(artifacts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	for name, content := range artifacts {
		if err := r.store.Put(ctx, contextstore.ArtifactKey(r.id, name), content); err != nil {
			r.trace.Warn("artifact not persisted", "name", name, "error", err.Error())
		}
	}
}
