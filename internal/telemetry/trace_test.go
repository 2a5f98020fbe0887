//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestSpanNames(t *testing.T) {
	assert.Equal(t, "run", RunSpanName(""))
	assert.Equal(t, "run research", RunSpanName("research"))
	assert.Equal(t, "level 2", LevelSpanName(2))
	assert.Equal(t, "execute_tool search", ToolSpanName("search"))
}

func TestTraceHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")
	ctx := context.Background()

	_, run := tracer.Start(ctx, RunSpanName("research"))
	TraceRunStart(run, "r1", "goal", "research", 3)
	TraceRunEnd(run, false, "validation", errors.New("cycle"))
	run.End()

	_, call := tracer.Start(ctx, ToolSpanName("search"))
	TraceToolCall(call, "s1", "search", "search", 2)
	TraceToolResult(call, "", nil)
	call.End()

	_, mut := tracer.Start(ctx, SpanNameMutation)
	TraceMutation(mut, 2, true, []string{"e2"})
	mut.End()

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	runAttrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "r1", runAttrs[KeyRunID].AsString())
	assert.Equal(t, int64(3), runAttrs[KeyNodeCount].AsInt64())
	assert.Equal(t, "validation", runAttrs[KeyErrorType].AsString())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	callAttrs := attrMap(spans[1].Attributes())
	assert.Equal(t, int64(2), callAttrs[KeyAttempt].AsInt64())
	assert.Equal(t, codes.Ok, spans[1].Status().Code)

	mutAttrs := attrMap(spans[2].Attributes())
	assert.True(t, mutAttrs[KeyCommitted].AsBool())
	assert.Equal(t, []string{"e2"}, mutAttrs[KeyRejectedNodes].AsStringSlice())
}

func TestNewGRPCConn(t *testing.T) {
	original := grpcDial
	defer func() { grpcDial = original }()

	grpcDial = func(string, ...grpc.DialOption) (*grpc.ClientConn, error) {
		return nil, errors.New("connection failed")
	}
	_, err := NewGRPCConn("invalid:endpoint")
	assert.Error(t, err)

	grpcDial = original
	conn, err := NewGRPCConn("localhost:4317")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
