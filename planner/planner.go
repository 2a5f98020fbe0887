//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package planner computes the execution order of a task graph.
//
// A plan is a sequence of levels. Every node in a level depends only on
// nodes from earlier levels (or on nodes that have already settled), so the
// nodes of one level may run concurrently. Within a level nodes keep graph
// insertion order, which makes plans reproducible.
package planner

import (
	"strings"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

// Level is a set of mutually independent node ids in insertion order.
type Level []string

// Plan is an ordered list of levels.
type Plan []Level

// NodeIDs flattens the plan in execution order.
func (p Plan) NodeIDs() []string {
	var ids []string
	for _, lvl := range p {
		ids = append(ids, lvl...)
	}
	return ids
}

// SettledFunc reports whether a node no longer needs scheduling, either
// because it already ran or because it will never run.
type SettledFunc func(id string) bool

// Compute levels the whole graph.
func Compute(g *graph.Graph) (Plan, error) {
	return Remaining(g, nil)
}

// Remaining levels the subgraph of nodes that are not settled. Edges from
// settled nodes count as satisfied. It is used for the initial plan and for
// every re-plan after a graph mutation.
func Remaining(g *graph.Graph, settled SettledFunc) (Plan, error) {
	if settled == nil {
		settled = func(string) bool { return false }
	}

	var pending []string
	inPlan := make(map[string]bool)
	for _, n := range g.Nodes {
		if settled(n.ID) || inPlan[n.ID] {
			continue
		}
		inPlan[n.ID] = true
		pending = append(pending, n.ID)
	}

	indegree := make(map[string]int, len(pending))
	for _, id := range pending {
		for _, pred := range g.Predecessors(id) {
			if inPlan[pred] {
				indegree[id]++
			}
		}
	}

	var plan Plan
	placed := make(map[string]bool, len(pending))
	for len(placed) < len(pending) {
		var lvl Level
		for _, id := range pending {
			if !placed[id] && indegree[id] == 0 {
				lvl = append(lvl, id)
			}
		}
		if len(lvl) == 0 {
			var stuck []string
			for _, id := range pending {
				if !placed[id] {
					stuck = append(stuck, id)
				}
			}
			return nil, &graph.ValidationError{
				Reason: graph.ReasonCycle,
				NodeID: stuck[0],
				Detail: "unschedulable nodes " + strings.Join(stuck, ", "),
			}
		}
		for _, id := range lvl {
			placed[id] = true
			for _, succ := range g.Successors(id) {
				if inPlan[succ] {
					indegree[succ]--
				}
			}
		}
		plan = append(plan, lvl)
	}
	return plan, nil
}
