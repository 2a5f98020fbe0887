//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
)

func TestHelpersDelegateToDefault(t *testing.T) {
	original := log.Default
	defer func() { log.Default = original }()

	logger := &countLogger{}
	log.Default = logger
	ctx := context.Background()

	log.Debug("x")
	log.Debugf("%s", "x")
	log.Info("x")
	log.Infof("%s", "x")
	log.Warn("x")
	log.Warnf("%s", "x")
	log.Error("x")
	log.Errorf("%s", "x")
	log.DebugfContext(ctx, "%s", "x")
	log.InfofContext(ctx, "%s", "x")
	log.WarnfContext(ctx, "%s", "x")
	log.ErrorfContext(ctx, "%s", "x")

	assert.Equal(t, 12, logger.calls)
}

func TestNew_JSONEncoding(t *testing.T) {
	defer log.SetLevel(log.LevelInfo)
	log.SetLevel(log.LevelDebug)

	var buf bytes.Buffer
	l := log.New(&buf, true)
	l.Infof("run %s started", "r1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "info", rec["lvl"])
	assert.Equal(t, "run r1 started", rec["message"])
}

func TestNew_RespectsLevel(t *testing.T) {
	defer log.SetLevel(log.LevelInfo)
	log.SetLevel(log.LevelWarn)

	var buf bytes.Buffer
	l := log.New(&buf, false)
	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

type countLogger struct{ calls int }

func (l *countLogger) Debug(...any)          { l.calls++ }
func (l *countLogger) Debugf(string, ...any) { l.calls++ }
func (l *countLogger) Info(...any)           { l.calls++ }
func (l *countLogger) Infof(string, ...any)  { l.calls++ }
func (l *countLogger) Warn(...any)           { l.calls++ }
func (l *countLogger) Warnf(string, ...any)  { l.calls++ }
func (l *countLogger) Error(...any)          { l.calls++ }
func (l *countLogger) Errorf(string, ...any) { l.calls++ }
func (l *countLogger) Fatal(...any)          { l.calls++ }
func (l *countLogger) Fatalf(string, ...any) { l.calls++ }
