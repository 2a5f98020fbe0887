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
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
)

// Reference keywords. They take precedence over node ids of the same name.
const (
	refGoal = "goal"
	refDeps = "deps"
)

var refPattern = regexp.MustCompile(`\$\{([^${}]+)\}`)

// resolver substitutes ${...} references with upstream outputs.
//
//	${goal}           the run goal
//	${deps}           outputs of the direct dependencies, blank line separated
//	${node}           output of a complete ancestor
//	${node.gjson.path} a field of a complete ancestor's JSON output
//
// A reference to a node that is not an ancestor is an error whatever that
// node's status, so the outcome never depends on scheduling. Anything else
// is left untouched.
type resolver struct {
	goal     string
	deps     string
	graph    *graph.Graph
	upstream map[string]bool
	records  *recordBook
	policy   FailurePolicy
}

func (r *resolver) expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var firstErr error
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		v, err := r.lookup(strings.TrimSpace(match[2 : len(match)-1]), match)
		if err != nil {
			firstErr = err
			return match
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (r *resolver) lookup(ref, match string) (string, error) {
	switch ref {
	case refGoal:
		return r.goal, nil
	case refDeps:
		return r.deps, nil
	}
	id, path, ok := r.split(ref)
	if !ok {
		return match, nil
	}
	if !r.upstream[id] {
		return "", fmt.Errorf("reference %s: node %q is not upstream", match, id)
	}
	rec, _ := r.records.get(id)
	switch {
	case rec.Status == StatusComplete:
	case r.policy == ContinueAll && (rec.Status == StatusError || r.records.isBlocked(id)):
		return "", nil
	default:
		return "", fmt.Errorf("reference %s: node %q is %s", match, id, rec.Status)
	}
	if path == "" {
		return rec.Output, nil
	}
	if !gjson.Valid(rec.Output) {
		return "", fmt.Errorf("reference %s: output of node %q is not JSON", match, id)
	}
	res := gjson.Get(rec.Output, path)
	if !res.Exists() {
		return "", fmt.Errorf("reference %s: path %q not found in output of node %q", match, path, id)
	}
	return res.String(), nil
}

// split finds the longest node id prefix of ref, so ids may contain dots.
func (r *resolver) split(ref string) (id, path string, ok bool) {
	if r.graph.HasNode(ref) {
		return ref, "", true
	}
	for i := len(ref) - 1; i > 0; i-- {
		if ref[i] != '.' {
			continue
		}
		if r.graph.HasNode(ref[:i]) {
			return ref[:i], ref[i+1:], true
		}
	}
	return "", "", false
}

// expandValue walks config values and expands every string.
func (r *resolver) expandValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return r.expand(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			expanded, err := r.expandValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := r.expandValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *resolver) expandConfig(cfg map[string]any) (map[string]any, error) {
	if cfg == nil {
		return nil, nil
	}
	v, err := r.expandValue(cfg)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}
