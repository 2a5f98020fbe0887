//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package graph defines the task graph data model and its structural
// validation.
//
// Nodes and edges are kept in flat, insertion-ordered slices and every
// dependency is a plain id pair. The graph therefore never holds pointers
// between nodes, which keeps cloning, diffing and rolling back a mutation
// trivial.
package graph

import "fmt"

// Kind identifies which tool handles a node.
type Kind string

const (
	// KindEval marks an evaluation node. Its tool output is read as a
	// MutationRequest that may edit the live graph.
	KindEval Kind = "eval"
	// KindSearch runs a search tool.
	KindSearch Kind = "search"
	// KindAnswer produces an answer, usually the run result.
	KindAnswer Kind = "answer"
	// KindStructured produces structured (JSON) output.
	KindStructured Kind = "structured"
	// KindSummarize summarizes upstream content.
	KindSummarize Kind = "summarize"
	// KindFetch fetches remote documents.
	KindFetch Kind = "fetch"
)

// Node is a unit of work in the task graph.
type Node struct {
	// ID is unique within the graph.
	ID string `json:"id" yaml:"id"`
	// Kind decides which tool executes the node.
	Kind Kind `json:"kind" yaml:"kind"`
	// Label is a human readable name.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	// Prompt may contain ${...} references to upstream outputs.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	// Config is handed to the tool after reference substitution.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a copy of the node with its own config map.
func (n Node) Clone() Node {
	n.Config = cloneConfig(n.Config)
	return n
}

// Edge is a "must complete before" dependency from SourceID to TargetID.
type Edge struct {
	SourceID string `json:"sourceId" yaml:"sourceId"`
	TargetID string `json:"targetId" yaml:"targetId"`
}

// String implements fmt.Stringer.
func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.SourceID, e.TargetID)
}

// Graph is a directed graph of nodes and edges.
//
// Graph is a plain value container and is not safe for concurrent writes.
// The orchestrator mutates the live graph from a single goroutine only.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// New creates a graph from the given nodes and edges without validating it.
func New(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
	}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, n.Clone())
	}
	g.Edges = append(g.Edges, edges...)
	return g
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return New(nil, nil)
	}
	return New(g.Nodes, g.Edges)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// HasEdge reports whether the exact edge exists.
func (g *Graph) HasEdge(e Edge) bool {
	for _, existing := range g.Edges {
		if existing == e {
			return true
		}
	}
	return false
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Order returns the insertion position of every node id.
func (g *Graph) Order() map[string]int {
	order := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, ok := order[n.ID]; !ok {
			order[n.ID] = i
		}
	}
	return order
}

// AddNode appends a node. Uniqueness is checked by Validate.
func (g *Graph) AddNode(n Node) {
	g.Nodes = append(g.Nodes, n.Clone())
}

// AddEdge appends an edge unless the identical edge already exists.
func (g *Graph) AddEdge(e Edge) {
	if g.HasEdge(e) {
		return
	}
	g.Edges = append(g.Edges, e)
}

// RemoveNode deletes the node and every edge touching it.
// It reports whether the node was present.
func (g *Graph) RemoveNode(id string) bool {
	idx := -1
	for i, n := range g.Nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.SourceID == id || e.TargetID == id {
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	return true
}

// RemoveEdge deletes the edge and reports whether it was present.
func (g *Graph) RemoveEdge(e Edge) bool {
	for i, existing := range g.Edges {
		if existing == e {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// Predecessors returns the ids of nodes with an edge into id, in edge order.
func (g *Graph) Predecessors(id string) []string {
	var preds []string
	seen := make(map[string]bool)
	for _, e := range g.Edges {
		if e.TargetID == id && !seen[e.SourceID] {
			seen[e.SourceID] = true
			preds = append(preds, e.SourceID)
		}
	}
	return preds
}

// Successors returns the ids of nodes with an edge out of id, in edge order.
func (g *Graph) Successors(id string) []string {
	var succs []string
	seen := make(map[string]bool)
	for _, e := range g.Edges {
		if e.SourceID == id && !seen[e.TargetID] {
			seen[e.TargetID] = true
			succs = append(succs, e.TargetID)
		}
	}
	return succs
}

// Descendants returns every node reachable from id, excluding id itself.
func (g *Graph) Descendants(id string) map[string]bool {
	out := make(map[string]bool)
	stack := g.Successors(id)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[next] {
			continue
		}
		out[next] = true
		stack = append(stack, g.Successors(next)...)
	}
	return out
}

// Ancestors returns every node from which id is reachable, excluding id
// itself.
func (g *Graph) Ancestors(id string) map[string]bool {
	out := make(map[string]bool)
	stack := g.Predecessors(id)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[next] {
			continue
		}
		out[next] = true
		stack = append(stack, g.Predecessors(next)...)
	}
	return out
}

func cloneConfig(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneConfig(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
