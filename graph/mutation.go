//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"errors"
	"fmt"
)

// MutationRequest is the structured output of an evaluation node.
type MutationRequest struct {
	// Pass is a judgement signal only; it never fails a run by itself.
	Pass        bool     `json:"pass" yaml:"pass"`
	AddNodes    []Node   `json:"addNodes,omitempty" yaml:"addNodes,omitempty"`
	AddEdges    []Edge   `json:"addEdges,omitempty" yaml:"addEdges,omitempty"`
	RemoveNodes []string `json:"removeNodes,omitempty" yaml:"removeNodes,omitempty"`
	RemoveEdges []Edge   `json:"removeEdges,omitempty" yaml:"removeEdges,omitempty"`
}

// IsEmpty reports whether the request carries no structural edit.
func (m *MutationRequest) IsEmpty() bool {
	return m == nil || (len(m.AddNodes) == 0 && len(m.AddEdges) == 0 &&
		len(m.RemoveNodes) == 0 && len(m.RemoveEdges) == 0)
}

// ErrFrozenNode is wrapped by edits that touch a node which has already
// started. History is immutable once a node leaves pending.
var ErrFrozenNode = errors.New("node already started")

// EditError reports an edit that cannot be applied to the current graph.
type EditError struct {
	Detail string
	Err    error
}

// Error implements error.
func (e *EditError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid graph edit: %s: %v", e.Detail, e.Err)
	}
	return "invalid graph edit: " + e.Detail
}

// Unwrap returns the underlying cause.
func (e *EditError) Unwrap() error {
	return e.Err
}

// StartedFunc reports whether a node has left the pending state.
type StartedFunc func(id string) bool

// Apply builds a candidate graph from g plus the requests, in order, and
// validates it. g itself is never modified. Removals of a request are applied
// before its additions.
//
// Beyond Validate, a candidate is rejected when it removes a node that does
// not exist or has started, removes an edge that does not exist or points
// into a started node, or adds an edge whose target has started.
func Apply(g *Graph, started StartedFunc, reqs ...*MutationRequest) (*Graph, error) {
	if started == nil {
		started = func(string) bool { return false }
	}
	candidate := g.Clone()
	for _, req := range reqs {
		if req == nil {
			continue
		}
		if err := applyOne(candidate, started, req); err != nil {
			return nil, err
		}
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	return candidate, nil
}

func applyOne(g *Graph, started StartedFunc, req *MutationRequest) error {
	for _, e := range req.RemoveEdges {
		if started(e.TargetID) {
			return &EditError{Detail: fmt.Sprintf("remove edge %s", e), Err: ErrFrozenNode}
		}
		if !g.RemoveEdge(e) {
			return &EditError{Detail: fmt.Sprintf("remove edge %s: edge not found", e)}
		}
	}
	for _, id := range req.RemoveNodes {
		if started(id) {
			return &EditError{Detail: fmt.Sprintf("remove node %q", id), Err: ErrFrozenNode}
		}
		if !g.RemoveNode(id) {
			return &EditError{Detail: fmt.Sprintf("remove node %q: node not found", id)}
		}
	}
	for _, n := range req.AddNodes {
		g.AddNode(n)
	}
	for _, e := range req.AddEdges {
		if started(e.TargetID) {
			return &EditError{Detail: fmt.Sprintf("add edge %s", e), Err: ErrFrozenNode}
		}
		g.AddEdge(e)
	}
	return nil
}
