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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"trpc.group/trpc-go/trpc-taskgraph-go/graph"
	itelemetry "trpc.group/trpc-go/trpc-taskgraph-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/memory"
	"trpc.group/trpc-go/trpc-taskgraph-go/planner"
	"trpc.group/trpc-go/trpc-taskgraph-go/runtrace"
	"trpc.group/trpc-go/trpc-taskgraph-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
)

// Per node config keys.
const (
	configTool      = "tool"
	configTimeoutMS = "timeout_ms"
	configResult    = "result"
)

// nodeOutcome is what one node execution hands back to the run loop.
type nodeOutcome struct {
	nodeID string
	// notStarted is set when the run was cancelled before the node began.
	notStarted bool
	err        error
	output     string
	// mutation is set for evaluation nodes whose tool succeeded. Their
	// record stays running until the mutation handler decides.
	mutation *graph.MutationRequest
	toolName string
	kind     graph.Kind
	duration time.Duration
}

// executeLevel runs the nodes of one level concurrently on the run pool and
// waits for all of them.
func (r *run) executeLevel(ctx context.Context, index int, level planner.Level) []nodeOutcome {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.LevelSpanName(index))
	defer span.End()
	itelemetry.TraceLevel(span, index, level)

	var runnable []graph.Node
	for _, id := range level {
		node, ok := r.live.Node(id)
		if !ok {
			continue
		}
		if r.opts.failurePolicy != ContinueAll {
			if failed := r.failedPredecessor(id); failed != "" {
				reason := fmt.Sprintf("blocked by %s", failed)
				r.records.block(id, reason)
				r.trace.ForNode(id).Warn("node skipped", "reason", reason)
				continue
			}
		}
		runnable = append(runnable, node)
	}
	log.DebugfContext(ctx, "run %s: level %d starts %d node(s)", r.id, index, len(runnable))

	outcomes := make([]nodeOutcome, len(runnable))
	var wg sync.WaitGroup
	for i, node := range runnable {
		wg.Add(1)
		i, node := i, node
		if err := r.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = r.runNode(ctx, index, node)
		}); err != nil {
			wg.Done()
			toolName := r.toolFor(node)
			r.records.start(node.ID, index, toolName)
			execErr := &ToolExecutionError{NodeID: node.ID, Tool: toolName,
				Err: fmt.Errorf("submit to worker pool: %w", err)}
			r.records.fail(node.ID, execErr)
			outcomes[i] = nodeOutcome{nodeID: node.ID, err: execErr, toolName: toolName, kind: node.Kind}
		}
	}
	wg.Wait()
	return outcomes
}

// failedPredecessor returns a direct dependency that failed or was skipped.
func (r *run) failedPredecessor(id string) string {
	for _, p := range r.live.Predecessors(id) {
		if r.records.status(p) == StatusError || r.records.isBlocked(p) {
			return p
		}
	}
	return ""
}

func (r *run) runNode(ctx context.Context, index int, node graph.Node) nodeOutcome {
	out := nodeOutcome{nodeID: node.ID, kind: node.Kind, toolName: r.toolFor(node)}
	if ctx.Err() != nil {
		out.notStarted = true
		return out
	}
	rec := r.trace.ForNode(node.ID)
	r.records.start(node.ID, index, out.toolName)
	rec.Info("node started", "tool", out.toolName, "level", index)
	start := time.Now()

	result, err := r.invokeNode(ctx, node, out.toolName, rec)
	out.duration = time.Since(start)
	if err == nil && node.Kind == graph.KindEval {
		out.mutation, err = decodeMutation(result)
		if err != nil {
			err = &ToolExecutionError{NodeID: node.ID, Tool: out.toolName,
				Err: fmt.Errorf("malformed mutation request: %w", err)}
		}
	}
	if err != nil {
		out.err = err
		r.records.fail(node.ID, err)
		rec.Error("node failed", "error", err.Error(), "errorType", string(ErrorTypeOf(err)))
		itelemetry.RecordNodeExecution(ctx, string(node.Kind), out.toolName, string(StatusError), out.duration)
		return out
	}

	out.output = result.Output
	r.storeArtifacts(node.ID, result.Artifacts, rec)
	if node.Kind == graph.KindEval {
		rec.Info("evaluation returned", "pass", out.mutation.Pass)
		return out
	}
	r.records.complete(node.ID, out.output, nil)
	rec.Info("node complete", "bytes", len(out.output))
	itelemetry.RecordNodeExecution(ctx, string(node.Kind), out.toolName, string(StatusComplete), out.duration)
	return out
}

// invokeNode resolves the node input and calls its tool, retrying transient
// failures.
func (r *run) invokeNode(ctx context.Context, node graph.Node, toolName string, rec runtrace.Recorder) (*tool.Result, error) {
	args, err := r.buildArgs(node)
	if err != nil {
		return nil, &ToolExecutionError{NodeID: node.ID, Tool: toolName, Err: err}
	}
	ec := &tool.ExecContext{
		RunID:  r.id,
		NodeID: node.ID,
		Memory: memory.Scoped(r.memory, node.ID),
		Trace:  rec,
		Store:  r.store,
	}
	timeout := r.nodeTimeout(node)

	attempt := func() (*tool.Result, error) {
		args.Attempt = r.records.attempt(node.ID)
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()

		spanCtx, span := trace.Tracer.Start(callCtx, itelemetry.ToolSpanName(toolName))
		defer span.End()
		itelemetry.TraceToolCall(span, node.ID, string(node.Kind), toolName, args.Attempt)

		res, err := r.callTool(spanCtx, toolName, args, ec)
		permanent := true
		switch {
		case err == nil:
		case ctx.Err() != nil:
			err = contextError(ctx, node.ID, 0)
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			err = &TimeoutError{NodeID: node.ID, Timeout: timeout}
		case tool.IsNotFound(err):
			err = &ToolExecutionError{NodeID: node.ID, Tool: toolName, Err: err}
		default:
			err = &ToolExecutionError{NodeID: node.ID, Tool: toolName, Err: err}
			permanent = false
		}
		itelemetry.TraceToolResult(span, string(ErrorTypeOf(err)), err)
		if err != nil && permanent {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.opts.retryInterval
	res, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(r.opts.maxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			rec.Warn("retrying tool call", "error", err.Error(), "backoff", next.String())
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	var (
		timeoutErr *TimeoutError
		cancelErr  *CancellationError
	)
	if err != nil && ctx.Err() != nil && !errors.As(err, &timeoutErr) && !errors.As(err, &cancelErr) {
		// The run ended while waiting for the next attempt.
		err = contextError(ctx, node.ID, 0)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &tool.Result{}
	}
	return res, nil
}

type callResult struct {
	res *tool.Result
	err error
}

// callTool calls the tool on its own goroutine so that a tool ignoring its
// context cannot hold the run past cancellation. Panics become errors.
func (r *run) callTool(ctx context.Context, name string, args *tool.Args, ec *tool.ExecContext) (*tool.Result, error) {
	t, err := r.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	ch := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- callResult{err: fmt.Errorf("tool panicked: %v", p)}
			}
		}()
		res, err := t.Call(ctx, args, ec)
		ch <- callResult{res: res, err: err}
	}()
	select {
	case cr := <-ch:
		return cr.res, cr.err
	case <-ctx.Done():
		select {
		case cr := <-ch:
			return cr.res, cr.err
		default:
		}
		return nil, ctx.Err()
	}
}

func (r *run) buildArgs(node graph.Node) (*tool.Args, error) {
	preds := r.live.Predecessors(node.ID)
	order := r.live.Order()
	sort.SliceStable(preds, func(i, j int) bool { return order[preds[i]] < order[preds[j]] })

	inputs := make(map[string]string, len(preds))
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		out := ""
		if rec, ok := r.records.get(p); ok && rec.Status == StatusComplete {
			out = rec.Output
		}
		inputs[p] = out
		if out != "" {
			parts = append(parts, out)
		}
	}

	res := &resolver{
		goal:     r.spec.Goal,
		deps:     strings.Join(parts, "\n\n"),
		graph:    r.live,
		upstream: r.live.Ancestors(node.ID),
		records:  r.records,
		policy:   r.opts.failurePolicy,
	}
	prompt, err := res.expand(node.Prompt)
	if err != nil {
		return nil, err
	}
	cfg, err := res.expandConfig(node.Config)
	if err != nil {
		return nil, err
	}
	return &tool.Args{
		NodeID:     node.ID,
		Kind:       node.Kind,
		Label:      node.Label,
		Goal:       r.spec.Goal,
		Prompt:     prompt,
		Config:     cfg,
		Inputs:     inputs,
		InputOrder: preds,
	}, nil
}

func (r *run) toolFor(node graph.Node) string {
	if name, ok := node.Config[configTool].(string); ok && name != "" {
		return name
	}
	if name, ok := r.opts.toolNames[node.Kind]; ok && name != "" {
		return name
	}
	return string(node.Kind)
}

func (r *run) nodeTimeout(node graph.Node) time.Duration {
	if ms, ok := tool.ToInt(node.Config[configTimeoutMS]); ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return r.opts.nodeTimeout
}

// storeArtifacts files a node's returned artifacts under its own namespace.
func (r *run) storeArtifacts(nodeID string, artifacts map[string]string, rec runtrace.Recorder) {
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	docs := memory.Scoped(r.memory, nodeID)
	for _, name := range names {
		if err := docs.PutDoc(name, artifacts[name]); err != nil {
			rec.Warn("artifact dropped", "name", name, "error", err.Error())
		}
	}
}

// decodeMutation reads the MutationRequest of an evaluation result from its
// typed payload or, failing that, from its JSON output.
func decodeMutation(res *tool.Result) (*graph.MutationRequest, error) {
	switch d := res.Data.(type) {
	case *graph.MutationRequest:
		if d != nil {
			return d, nil
		}
	case graph.MutationRequest:
		return &d, nil
	case map[string]any:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		var req graph.MutationRequest
		if err := json.Unmarshal(b, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	body := strings.TrimSpace(res.Output)
	if body == "" {
		return nil, errors.New("empty evaluation output")
	}
	var req graph.MutationRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, err
	}
	return &req, nil
}
