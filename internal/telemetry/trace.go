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
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunSpanName returns the span name of a run.
func RunSpanName(taskType string) string {
	if taskType == "" {
		return SpanNameRun
	}
	return fmt.Sprintf("%s %s", SpanNameRun, taskType)
}

// LevelSpanName returns the span name of a level.
func LevelSpanName(index int) string {
	return fmt.Sprintf("%s %d", SpanNameLevel, index)
}

// ToolSpanName returns the span name of one tool attempt.
func ToolSpanName(toolName string) string {
	return fmt.Sprintf("%s %s", SpanNameExecuteTool, toolName)
}

// TraceRunStart sets run attributes.
func TraceRunStart(span trace.Span, runID, goal, taskType string, nodes int) {
	span.SetAttributes(
		attribute.String(KeyRunID, runID),
		attribute.String(KeyGoal, goal),
		attribute.String(KeyTaskType, taskType),
		attribute.Int(KeyNodeCount, nodes),
	)
}

// TraceRunEnd records the run outcome.
func TraceRunEnd(span trace.Span, success bool, errType string, err error) {
	span.SetAttributes(attribute.Bool(KeySuccess, success))
	if err != nil {
		span.SetAttributes(attribute.String(KeyErrorType, errType))
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if !success {
		span.SetStatus(codes.Error, "run finished with failed nodes")
	}
}

// TraceLevel sets level attributes.
func TraceLevel(span trace.Span, index int, nodeIDs []string) {
	span.SetAttributes(
		attribute.Int(KeyLevel, index),
		attribute.Int(KeyLevelSize, len(nodeIDs)),
		attribute.StringSlice(KeyNodeID, nodeIDs),
	)
}

// TraceToolCall sets the attributes of one tool attempt.
func TraceToolCall(span trace.Span, nodeID, kind, toolName string, attempt int) {
	span.SetAttributes(
		attribute.String(KeyNodeID, nodeID),
		attribute.String(KeyNodeKind, kind),
		attribute.String(KeyToolName, toolName),
		attribute.Int(KeyAttempt, attempt),
	)
}

// TraceToolResult records the attempt outcome.
func TraceToolResult(span trace.Span, errType string, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String(KeyErrorType, errType))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceMutation records a mutation batch.
func TraceMutation(span trace.Span, requests int, committed bool, rejected []string) {
	span.SetAttributes(
		attribute.Int(KeyRequests, requests),
		attribute.Bool(KeyCommitted, committed),
	)
	if len(rejected) > 0 {
		span.SetAttributes(attribute.StringSlice(KeyRejectedNodes, rejected))
	}
}
