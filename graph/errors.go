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

// Reason classifies a ValidationError.
type Reason string

const (
	// ReasonDuplicateID means two nodes share an id.
	ReasonDuplicateID Reason = "duplicate_id"
	// ReasonDanglingEdge means an edge references a missing node.
	ReasonDanglingEdge Reason = "dangling_edge"
	// ReasonCycle means the graph is not acyclic.
	ReasonCycle Reason = "cycle"
	// ReasonInvalidNode means a node has an empty id or kind.
	ReasonInvalidNode Reason = "invalid_node"
)

// ErrInvalidGraph is matched by every *ValidationError through errors.Is.
var ErrInvalidGraph = errors.New("invalid graph")

// ValidationError reports a structural problem in a graph.
type ValidationError struct {
	Reason Reason
	// NodeID is the offending node, when one can be named.
	NodeID string
	// Detail is a short human readable description.
	Detail string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("graph validation failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("graph validation failed (%s) at node %q: %s", e.Reason, e.NodeID, e.Detail)
}

// Is makes errors.Is(err, ErrInvalidGraph) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidGraph
}

// ReasonOf extracts the validation reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}
