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
	"fmt"
	"strings"
)

// Validate checks id uniqueness, edge resolvability and acyclicity, in
// that order, and returns the first problem found as a *ValidationError.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return &ValidationError{Reason: ReasonInvalidNode, Detail: "node id cannot be empty"}
		}
		if n.Kind == "" {
			return &ValidationError{Reason: ReasonInvalidNode, NodeID: n.ID, Detail: "node kind cannot be empty"}
		}
		if seen[n.ID] {
			return &ValidationError{Reason: ReasonDuplicateID, NodeID: n.ID, Detail: "node id is not unique"}
		}
		seen[n.ID] = true
	}
	for _, e := range g.Edges {
		if !seen[e.SourceID] {
			return &ValidationError{
				Reason: ReasonDanglingEdge,
				NodeID: e.SourceID,
				Detail: fmt.Sprintf("edge %s references unknown source", e),
			}
		}
		if !seen[e.TargetID] {
			return &ValidationError{
				Reason: ReasonDanglingEdge,
				NodeID: e.TargetID,
				Detail: fmt.Sprintf("edge %s references unknown target", e),
			}
		}
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		return &ValidationError{
			Reason: ReasonCycle,
			NodeID: cycle[0],
			Detail: "cycle " + strings.Join(cycle, " -> "),
		}
	}
	return nil
}

const (
	white = iota
	grey
	black
)

// findCycle runs a DFS with three-colour marking and returns the first cycle
// found as a closed path (first id repeated at the end), or nil.
func (g *Graph) findCycle() []string {
	color := make(map[string]int, len(g.Nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range g.Successors(id) {
			switch color[next] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, stack[start:]...), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white && visit(n.ID) {
			return cycle
		}
	}
	return nil
}
