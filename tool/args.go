//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns the config value under key rendered as a string.
func (a *Args) String(key string) string {
	v, ok := a.Config[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the integer config value under key, or def when absent or
// not a number. JSON numbers decode as float64 and YAML ones as int; both
// are accepted, as are numeric strings.
func (a *Args) Int(key string, def int) int {
	n, ok := ToInt(a.Config[key])
	if !ok {
		return def
	}
	return n
}

// Bool returns the boolean config value under key.
func (a *Args) Bool(key string) bool {
	switch v := a.Config[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Strings returns a list config value. A single string is split on
// whitespace.
func (a *Args) Strings(key string) []string {
	switch v := a.Config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

// JoinedInputs returns dependency outputs in insertion order separated by a
// blank line.
func (a *Args) JoinedInputs() string {
	parts := make([]string, 0, len(a.InputOrder))
	for _, id := range a.InputOrder {
		if out := a.Inputs[id]; out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ToInt converts the numeric shapes produced by JSON and YAML decoders.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
