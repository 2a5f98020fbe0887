//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestMetricsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "custom-metric:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic:4318")
	assert.Equal(t, "custom-metric:4318", metricsEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	assert.Equal(t, "generic:4318", metricsEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", metricsEndpoint("grpc"))
	assert.Equal(t, "localhost:4318", metricsEndpoint("http"))
}

func TestStartAndClean(t *testing.T) {
	defer func() { _ = InitMeterProvider(noop.NewMeterProvider()) }()
	for _, protocol := range []string{"grpc", "http"} {
		clean, err := Start(context.Background(),
			WithProtocol(protocol),
			WithEndpoint("localhost:4317"),
			WithServiceName("taskgraph-test"),
			WithResourceAttributes(attribute.String("env", "test")),
		)
		require.NoError(t, err)
		_ = clean() // no collector runs in tests
	}
}

func TestInitMeterProvider(t *testing.T) {
	defer func() { _ = InitMeterProvider(noop.NewMeterProvider()) }()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	require.NoError(t, InitMeterProvider(mp))
	assert.Same(t, mp, GetMeterProvider())
}
