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
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

// Status is the lifecycle state of a node.
type Status string

// Node states. A node moves pending -> running -> complete or error, and
// never leaves a terminal state.
const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether s is complete or error.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ExecutionRecord is the per node entry of the run metrics.
type ExecutionRecord struct {
	NodeID string     `json:"nodeId"`
	Kind   graph.Kind `json:"kind"`
	Status Status     `json:"status"`
	// Tool is the tool that was invoked.
	Tool string `json:"tool,omitempty"`
	// Level is the index of the level the node ran in, or -1.
	Level       int        `json:"level"`
	Attempts    int        `json:"attempts,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorType   ErrorType  `json:"errorType,omitempty"`
	// Reason explains why a pending node never started.
	Reason string `json:"reason,omitempty"`
	// Pass is the judgement of an evaluation node.
	Pass *bool `json:"pass,omitempty"`
}

// Duration returns the time between start and completion.
func (r ExecutionRecord) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// recordBook owns the records of one run. Workers of a level each touch
// their own record; the run loop reads all of them between levels.
type recordBook struct {
	mu      sync.RWMutex
	records map[string]*ExecutionRecord
	blocked map[string]bool
	now     func() time.Time
}

func newRecordBook(now func() time.Time) *recordBook {
	return &recordBook{
		records: make(map[string]*ExecutionRecord),
		blocked: make(map[string]bool),
		now:     now,
	}
}

// ensure creates a pending record for every node that has none.
func (b *recordBook) ensure(nodes []graph.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range nodes {
		if _, ok := b.records[n.ID]; ok {
			continue
		}
		b.records[n.ID] = &ExecutionRecord{
			NodeID: n.ID,
			Kind:   n.Kind,
			Status: StatusPending,
			Level:  -1,
		}
	}
}

// remove drops the record of a node deleted from the graph. Only pending
// records can go.
func (b *recordBook) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.records[id]; ok && r.Status == StatusPending {
		delete(b.records, id)
		delete(b.blocked, id)
	}
}

func (b *recordBook) start(id string, level int, toolName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[id]
	if !ok || r.Status != StatusPending {
		return
	}
	now := b.now()
	r.Status = StatusRunning
	r.Level = level
	r.Tool = toolName
	r.StartedAt = &now
	r.Reason = ""
}

func (b *recordBook) attempt(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[id]
	if !ok {
		return 0
	}
	r.Attempts++
	return r.Attempts
}

// complete finalizes a running record. It reports false if the record was
// already terminal.
func (b *recordBook) complete(id, output string, pass *bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[id]
	if !ok || r.Status.Terminal() {
		return false
	}
	now := b.now()
	r.Status = StatusComplete
	r.CompletedAt = &now
	r.Output = output
	r.Pass = pass
	return true
}

// fail finalizes a record with err. It reports false if the record was
// already terminal.
func (b *recordBook) fail(id string, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[id]
	if !ok || r.Status.Terminal() {
		return false
	}
	now := b.now()
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
	r.Status = StatusError
	r.CompletedAt = &now
	r.Error = err.Error()
	r.ErrorType = ErrorTypeOf(err)
	return true
}

// block marks a pending node as never going to run.
func (b *recordBook) block(id, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.records[id]; ok && r.Status == StatusPending {
		r.Reason = reason
		b.blocked[id] = true
	}
}

// note sets the reason of a pending node without blocking it.
func (b *recordBook) note(id, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.records[id]; ok && r.Status == StatusPending && r.Reason == "" {
		r.Reason = reason
	}
}

func (b *recordBook) get(id string) (ExecutionRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.records[id]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}

func (b *recordBook) status(id string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.records[id]; ok {
		return r.Status
	}
	return ""
}

func (b *recordBook) isBlocked(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.blocked[id]
}

// started reports whether a node left pending.
func (b *recordBook) started(id string) bool {
	s := b.status(id)
	return s != "" && s != StatusPending
}

// settled reports whether a node needs no more scheduling.
func (b *recordBook) settled(id string) bool {
	return b.started(id) || b.isBlocked(id)
}

func (b *recordBook) anyFailed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, r := range b.records {
		if r.Status == StatusError {
			return true
		}
	}
	return false
}

func (b *recordBook) snapshot() map[string]ExecutionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]ExecutionRecord, len(b.records))
	for id, r := range b.records {
		cp := *r
		if r.StartedAt != nil {
			t := *r.StartedAt
			cp.StartedAt = &t
		}
		if r.CompletedAt != nil {
			t := *r.CompletedAt
			cp.CompletedAt = &t
		}
		if r.Pass != nil {
			p := *r.Pass
			cp.Pass = &p
		}
		out[id] = cp
	}
	return out
}
