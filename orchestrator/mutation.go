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

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	itelemetry "trpc.group/trpc-go/trpc-taskgraph-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/telemetry/trace"
)

// applyMutations decides the evaluation nodes of a finished level and
// reports whether the live graph changed.
//
// All requests of the level are first tried together. If the combined
// candidate is invalid, each request is tried on its own against the graph
// accepted so far, so a bad request cannot sink a good one.
func (r *run) applyMutations(ctx context.Context, outcomes []nodeOutcome) bool {
	var evals []nodeOutcome
	for _, o := range outcomes {
		if o.mutation != nil && o.err == nil {
			evals = append(evals, o)
		}
	}
	if len(evals) == 0 {
		return false
	}

	var edits []nodeOutcome
	for _, e := range evals {
		if !e.mutation.IsEmpty() {
			edits = append(edits, e)
		}
	}

	rejected := make(map[string]error)
	var next *graph.Graph
	if len(edits) > 0 {
		ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameMutation)
		next = r.mergeEdits(edits, rejected)
		committed := next != nil
		var rejectedIDs []string
		for _, e := range edits {
			if _, ok := rejected[e.nodeID]; ok {
				rejectedIDs = append(rejectedIDs, e.nodeID)
			}
		}
		itelemetry.TraceMutation(span, len(edits), committed, rejectedIDs)
		itelemetry.IncMutation(ctx, committed)
		span.End()
	}

	for _, e := range evals {
		rec := r.trace.ForNode(e.nodeID)
		if cause, ok := rejected[e.nodeID]; ok {
			err := &MutationError{NodeID: e.nodeID, Err: cause}
			r.records.fail(e.nodeID, err)
			rec.Warn("mutation rejected", "error", cause.Error())
			itelemetry.RecordNodeExecution(ctx, string(e.kind), e.toolName, string(StatusError), e.duration)
			continue
		}
		pass := e.mutation.Pass
		r.records.complete(e.nodeID, e.output, &pass)
		if !e.mutation.IsEmpty() {
			rec.Info("mutation applied",
				"addNodes", len(e.mutation.AddNodes),
				"addEdges", len(e.mutation.AddEdges),
				"removeNodes", len(e.mutation.RemoveNodes),
				"removeEdges", len(e.mutation.RemoveEdges))
		}
		itelemetry.RecordNodeExecution(ctx, string(e.kind), e.toolName, string(StatusComplete), e.duration)
	}

	if next == nil {
		return false
	}
	r.commit(next)
	log.DebugfContext(ctx, "run %s: graph mutated, %d node(s) now", r.id, next.Len())
	return true
}

// mergeEdits returns the candidate graph to commit, or nil if no request
// survived. Rejected requests are recorded in rejected.
func (r *run) mergeEdits(edits []nodeOutcome, rejected map[string]error) *graph.Graph {
	reqs := make([]*graph.MutationRequest, 0, len(edits))
	for _, e := range edits {
		reqs = append(reqs, e.mutation)
	}
	candidate, err := graph.Apply(r.live, r.records.started, reqs...)
	if err == nil {
		return candidate
	}
	if len(edits) == 1 {
		rejected[edits[0].nodeID] = err
		return nil
	}

	base := r.live
	accepted := 0
	for _, e := range edits {
		c, err := graph.Apply(base, r.records.started, e.mutation)
		if err != nil {
			rejected[e.nodeID] = err
			continue
		}
		base = c
		accepted++
	}
	if accepted == 0 {
		return nil
	}
	return base
}

// commit swaps in the new live graph and keeps the records in step with it.
func (r *run) commit(next *graph.Graph) {
	for _, id := range r.live.NodeIDs() {
		if !next.HasNode(id) {
			r.records.remove(id)
		}
	}
	r.records.ensure(next.Nodes)
	r.live = next
}
