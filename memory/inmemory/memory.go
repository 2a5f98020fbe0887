//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-process Memory implementation.
package inmemory

import (
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
)

var _ memory.Memory = (*Memory)(nil)

// defaultDocLimit is the default maximum number of documents per run.
const defaultDocLimit = 1000

type options struct {
	docLimit int
}

// Option configures a Memory.
type Option func(*options)

// WithDocLimit sets the maximum number of documents. Zero or less means no
// limit.
func WithDocLimit(limit int) Option {
	return func(o *options) {
		o.docLimit = limit
	}
}

// Memory keeps values and documents in maps guarded by one RWMutex.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
	docs   map[string]string
	opts   options
}

// New creates an empty Memory.
func New(opts ...Option) *Memory {
	o := options{docLimit: defaultDocLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory{
		values: make(map[string]any),
		docs:   make(map[string]string),
		opts:   o,
	}
}

// Get implements memory.Memory.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set implements memory.Memory.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Keys implements memory.Memory.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PutDoc implements memory.Memory. Overwriting an existing document never
// counts against the limit.
func (m *Memory) PutDoc(name, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[name]; !exists && m.opts.docLimit > 0 && len(m.docs) >= m.opts.docLimit {
		return memory.ErrDocumentLimit
	}
	m.docs[name] = content
	return nil
}

// GetDoc implements memory.Memory.
func (m *Memory) GetDoc(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[name]
	return doc, ok
}

// Docs implements memory.Memory.
func (m *Memory) Docs() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.docs))
	for k, v := range m.docs {
		out[k] = v
	}
	return out
}
