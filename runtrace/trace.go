//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package runtrace provides the append-only event log of a run.
//
// Every event gets a monotonically increasing sequence number. Events are
// never modified or removed once recorded.
package runtrace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
)

// Level is the severity of an event.
type Level string

// Event levels.
const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one trace entry.
type Event struct {
	Seq     int            `json:"seq"`
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	NodeID  string         `json:"nodeId,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Recorder is the write side of a trace handed to tools.
type Recorder interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Option configures a Trace.
type Option func(*Trace)

// WithLogger mirrors every event to l at debug level.
func WithLogger(l log.Logger) Option {
	return func(t *Trace) {
		t.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Trace) {
		t.now = now
	}
}

// Trace is safe for concurrent use.
type Trace struct {
	mu     sync.RWMutex
	events []Event
	logger log.Logger
	now    func() time.Time
}

var _ Recorder = (*Trace)(nil)

// New creates an empty trace.
func New(opts ...Option) *Trace {
	t := &Trace{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Info records an info event. fields are alternating key/value pairs.
func (t *Trace) Info(msg string, fields ...any) { t.Record(LevelInfo, "", msg, fields...) }

// Warn records a warning event.
func (t *Trace) Warn(msg string, fields ...any) { t.Record(LevelWarn, "", msg, fields...) }

// Error records an error event.
func (t *Trace) Error(msg string, fields ...any) { t.Record(LevelError, "", msg, fields...) }

// Record appends an event and returns it.
func (t *Trace) Record(level Level, nodeID, msg string, fields ...any) Event {
	t.mu.Lock()
	ev := Event{
		Seq:     len(t.events) + 1,
		Time:    t.now(),
		Level:   level,
		NodeID:  nodeID,
		Message: msg,
		Fields:  toFields(fields),
	}
	t.events = append(t.events, ev)
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Debugf("[trace] %s", ev)
	}
	return ev
}

// Events returns a copy of all events in record order.
func (t *Trace) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Count returns the number of recorded events.
func (t *Trace) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

// CountLevel returns the number of events at level.
func (t *Trace) CountLevel(level Level) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, ev := range t.events {
		if ev.Level == level {
			n++
		}
	}
	return n
}

// ForNode returns a Recorder that stamps events with nodeID.
func (t *Trace) ForNode(nodeID string) Recorder {
	return &nodeRecorder{trace: t, nodeID: nodeID}
}

type nodeRecorder struct {
	trace  *Trace
	nodeID string
}

func (r *nodeRecorder) Info(msg string, fields ...any) {
	r.trace.Record(LevelInfo, r.nodeID, msg, fields...)
}

func (r *nodeRecorder) Warn(msg string, fields ...any) {
	r.trace.Record(LevelWarn, r.nodeID, msg, fields...)
}

func (r *nodeRecorder) Error(msg string, fields ...any) {
	r.trace.Record(LevelError, r.nodeID, msg, fields...)
}

// String renders the event on one line.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", e.Seq, e.Level)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " node=%s", e.NodeID)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// toFields pairs up keys and values. A trailing key without a value is kept
// under "!BADKEY", matching slog.
func toFields(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			out["!BADKEY"] = kv[i]
			if !ok && i+1 < len(kv) {
				out[fmt.Sprint(kv[i])] = kv[i+1]
			}
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}
