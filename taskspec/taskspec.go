//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package taskspec defines the declarative input of a run and loads it from
// JSON or YAML documents.
package taskspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

// Constraint keys understood by the orchestrator.
const (
	ConstraintMaxConcurrency = "max_concurrency"
	ConstraintNodeTimeoutMS  = "node_timeout_ms"
	ConstraintTimeoutMS      = "timeout_ms"
	ConstraintFailurePolicy  = "failure_policy"
	ConstraintResultNode     = "result_node"
	ConstraintAllowedTools   = "allowed_tools"
)

// TaskSpec is the immutable input of one run.
type TaskSpec struct {
	Goal        string         `json:"goal" yaml:"goal"`
	Type        string         `json:"type" yaml:"type"`
	Graph       graph.Graph    `json:"graph" yaml:"graph"`
	Constraints map[string]any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Format is a document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads a task spec file. The format follows the file extension;
// anything that is not .yaml or .yml is read as JSON.
func Load(path string) (*TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task spec: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	spec, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a task spec. Unknown JSON fields are rejected so that typos
// in hand written specs surface early.
func Parse(data []byte, format Format) (*TaskSpec, error) {
	var spec TaskSpec
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode yaml task spec: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode json task spec: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported task spec format %q", format)
	}
	return &spec, nil
}

// Clone returns a copy whose graph is deep copied, with the other fields shared.
func (s *TaskSpec) Clone() *TaskSpec {
	out := *s
	out.Graph = *s.Graph.Clone()
	return &out
}

// Int returns an integer constraint.
func (s *TaskSpec) Int(key string) (int, bool) {
	v, ok := s.Constraints[key]
	if !ok {
		return 0, false
	}
	return tool.ToInt(v)
}

// String returns a string constraint.
func (s *TaskSpec) String(key string) string {
	v, _ := s.Constraints[key].(string)
	return v
}

// Strings returns a list constraint.
func (s *TaskSpec) Strings(key string) []string {
	a := &tool.Args{Config: s.Constraints}
	return a.Strings(key)
}

// Duration reads a millisecond constraint.
func (s *TaskSpec) Duration(key string) (time.Duration, bool) {
	ms, ok := s.Int(key)
	if !ok || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
