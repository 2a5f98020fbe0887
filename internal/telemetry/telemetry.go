//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the OpenTelemetry instruments, attribute keys and
// span helpers shared by the orchestrator and the public telemetry packages.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcDial is a package-level variable to allow test injection of a custom
// dialer.
var grpcDial = grpc.NewClient

// telemetry service constants.
const (
	ServiceName      = "taskgraph"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-taskgraph"
	InstrumentName   = "trpc.taskgraph.go"
)

// OTLP exporter protocols.
const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// Attribute keys.
const (
	KeyRunID         = "taskgraph.run.id"
	KeyGoal          = "taskgraph.goal"
	KeyTaskType      = "taskgraph.task.type"
	KeyLevel         = "taskgraph.level"
	KeyLevelSize     = "taskgraph.level.size"
	KeyNodeID        = "taskgraph.node.id"
	KeyNodeKind      = "taskgraph.node.kind"
	KeyToolName      = "taskgraph.tool.name"
	KeyAttempt       = "taskgraph.tool.attempt"
	KeyStatus        = "taskgraph.status"
	KeyErrorType     = "taskgraph.error.type"
	KeyCommitted     = "taskgraph.mutation.committed"
	KeyRequests      = "taskgraph.mutation.requests"
	KeySuccess       = "taskgraph.run.success"
	KeyNodeCount     = "taskgraph.node.count"
	KeyPass          = "taskgraph.eval.pass"
	KeyRejectedNodes = "taskgraph.mutation.rejected"
)

// Span names.
const (
	SpanNameRun         = "run"
	SpanNameLevel       = "level"
	SpanNameExecuteTool = "execute_tool"
	SpanNameMutation    = "mutation"
)

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpcDial(endpoint,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
