//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package memory defines the ephemeral, run-scoped scratch space tools use
// to share intermediate state within one run.
//
// A Memory holds a key/value map for small values and a set of named
// documents. Documents are the run's artifacts and are returned to the
// caller when the run finishes.
package memory

import (
	"errors"
	"strings"
)

// ErrDocumentLimit is returned by PutDoc when the store is full.
var ErrDocumentLimit = errors.New("memory: document limit reached")

// Separator joins a node id and a key in a namespaced key.
const Separator = "/"

// Memory is safe for concurrent use by the nodes of one level.
type Memory interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)
	// Set stores value under key, replacing any previous value.
	Set(key string, value any)
	// Keys returns all keys in sorted order.
	Keys() []string
	// PutDoc stores a named document.
	PutDoc(name, content string) error
	// GetDoc returns a named document.
	GetDoc(name string) (string, bool)
	// Docs returns a snapshot of all documents.
	Docs() map[string]string
}

// NamespacedKey returns the key under which a node's value for key is kept.
func NamespacedKey(nodeID, key string) string {
	if nodeID == "" {
		return key
	}
	return nodeID + Separator + key
}

// Scoped returns a view of m for a single node. Set and PutDoc write under
// the nodeID namespace, so two nodes of one level never overwrite each
// other. A name already carrying the node's prefix is kept as is. Get and
// GetDoc first look in the node's namespace and fall back to the raw name,
// so a node can read what another node published under "<other>/<name>".
func Scoped(m Memory, nodeID string) Memory {
	if m == nil {
		return nil
	}
	if s, ok := m.(*scoped); ok {
		m = s.Memory
	}
	return &scoped{Memory: m, nodeID: nodeID}
}

type scoped struct {
	Memory
	nodeID string
}

// Get implements Memory.
func (s *scoped) Get(key string) (any, bool) {
	if v, ok := s.Memory.Get(NamespacedKey(s.nodeID, key)); ok {
		return v, true
	}
	return s.Memory.Get(key)
}

// Set implements Memory.
func (s *scoped) Set(key string, value any) {
	s.Memory.Set(NamespacedKey(s.nodeID, key), value)
}

// PutDoc implements Memory.
func (s *scoped) PutDoc(name, content string) error {
	return s.Memory.PutDoc(s.own(name), content)
}

// GetDoc implements Memory.
func (s *scoped) GetDoc(name string) (string, bool) {
	if doc, ok := s.Memory.GetDoc(NamespacedKey(s.nodeID, name)); ok {
		return doc, true
	}
	return s.Memory.GetDoc(name)
}

func (s *scoped) own(name string) string {
	if s.nodeID != "" && strings.HasPrefix(name, s.nodeID+Separator) {
		return name
	}
	return NamespacedKey(s.nodeID, name)
}

// Keys returns the node's own keys with the namespace stripped.
func (s *scoped) Keys() []string {
	prefix := s.nodeID + Separator
	var keys []string
	for _, k := range s.Memory.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	return keys
}
