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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names.
const (
	MeterName              = "trpc.taskgraph.go"
	MetricNodeExecutionCnt = "taskgraph.node.executions"
	MetricNodeDuration     = "taskgraph.node.duration"
	MetricMutationCnt      = "taskgraph.mutations"
	MetricRunCnt           = "taskgraph.runs"
	MetricRunDuration      = "taskgraph.run.duration"
)

// Instruments. They are no-ops until InitInstruments is called with a real
// provider.
var (
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	NodeExecutionCnt metric.Int64Counter     = noop.Int64Counter{}
	NodeDuration     metric.Float64Histogram = noop.Float64Histogram{}
	MutationCnt      metric.Int64Counter     = noop.Int64Counter{}
	RunCnt           metric.Int64Counter     = noop.Int64Counter{}
	RunDuration      metric.Float64Histogram = noop.Float64Histogram{}
)

// InitInstruments creates every instrument from mp.
func InitInstruments(mp metric.MeterProvider) error {
	if mp == nil {
		return fmt.Errorf("meter provider is nil")
	}
	meter := mp.Meter(MeterName)
	var err error
	if NodeExecutionCnt, err = meter.Int64Counter(MetricNodeExecutionCnt,
		metric.WithDescription("Number of node executions by final status"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricNodeExecutionCnt, err)
	}
	if NodeDuration, err = meter.Float64Histogram(MetricNodeDuration,
		metric.WithDescription("Duration of node executions"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricNodeDuration, err)
	}
	if MutationCnt, err = meter.Int64Counter(MetricMutationCnt,
		metric.WithDescription("Number of graph mutation batches"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricMutationCnt, err)
	}
	if RunCnt, err = meter.Int64Counter(MetricRunCnt,
		metric.WithDescription("Number of finished runs"),
		metric.WithUnit("1"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricRunCnt, err)
	}
	if RunDuration, err = meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of runs"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create metric %s: %w", MetricRunDuration, err)
	}
	MeterProvider = mp
	return nil
}

// RecordNodeExecution counts one finished node and records its duration.
func RecordNodeExecution(ctx context.Context, kind, toolName, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(KeyNodeKind, kind),
		attribute.String(KeyToolName, toolName),
		attribute.String(KeyStatus, status),
	)
	NodeExecutionCnt.Add(ctx, 1, attrs)
	NodeDuration.Record(ctx, duration.Seconds(), attrs)
}

// IncMutation counts one mutation batch.
func IncMutation(ctx context.Context, committed bool) {
	MutationCnt.Add(ctx, 1, metric.WithAttributes(attribute.Bool(KeyCommitted, committed)))
}

// RecordRun counts one finished run and records its duration.
func RecordRun(ctx context.Context, taskType string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(KeyTaskType, taskType),
		attribute.Bool(KeySuccess, success),
	)
	RunCnt.Add(ctx, 1, attrs)
	RunDuration.Record(ctx, duration.Seconds(), attrs)
}
