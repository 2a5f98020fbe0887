//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package log provides the process logger.
//
// Logs go to stderr so that stdout stays reserved for the driver's JSON
// result line.
package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default is the logger behind the package level helpers.
// Replace it with anything implementing Logger.
var Default Logger = New(os.Stderr, false)

// Logger is the logging interface used throughout trpc-taskgraph-go.
type Logger interface {
	// Debug logs to DEBUG log. Arguments are handled in the manner of fmt.Print.
	Debug(args ...any)
	// Debugf logs to DEBUG log. Arguments are handled in the manner of fmt.Printf.
	Debugf(format string, args ...any)
	// Info logs to INFO log. Arguments are handled in the manner of fmt.Print.
	Info(args ...any)
	// Infof logs to INFO log. Arguments are handled in the manner of fmt.Printf.
	Infof(format string, args ...any)
	// Warn logs to WARNING log. Arguments are handled in the manner of fmt.Print.
	Warn(args ...any)
	// Warnf logs to WARNING log. Arguments are handled in the manner of fmt.Printf.
	Warnf(format string, args ...any)
	// Error logs to ERROR log. Arguments are handled in the manner of fmt.Print.
	Error(args ...any)
	// Errorf logs to ERROR log. Arguments are handled in the manner of fmt.Printf.
	Errorf(format string, args ...any)
	// Fatal logs to FATAL log and exits.
	Fatal(args ...any)
	// Fatalf logs to FATAL log and exits.
	Fatalf(format string, args ...any)
}

// New builds a zap backed Logger writing to w at the shared level.
// With jsonEncoding the records are JSON objects, otherwise console lines.
func New(w io.Writer, jsonEncoding bool) Logger {
	var enc zapcore.Encoder
	if jsonEncoding {
		cfg := encoderConfig
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zap.New(
		zapcore.NewCore(enc, zapcore.AddSync(w), zapLevel),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	).Sugar()
}

// SetLevel sets the log level. Unknown levels fall back to info.
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Enabled reports whether records at level would be written.
func Enabled(level string) bool {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return false
	}
	return zapLevel.Enabled(l)
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Debug logs to DEBUG log.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs to DEBUG log.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to INFO log.
func Info(args ...any) { Default.Info(args...) }

// Infof logs to INFO log.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to WARNING log.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs to WARNING log.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to ERROR log.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs to ERROR log.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatal logs to FATAL log and exits.
func Fatal(args ...any) { Default.Fatal(args...) }

// Fatalf logs to FATAL log and exits.
func Fatalf(format string, args ...any) { Default.Fatalf(format, args...) }

// DebugfContext logs to DEBUG log. The context is accepted so callers can
// later attach request scoped fields without changing call sites.
var DebugfContext = func(_ context.Context, format string, args ...any) {
	Default.Debugf(format, args...)
}

// InfofContext logs to INFO log with context.
var InfofContext = func(_ context.Context, format string, args ...any) {
	Default.Infof(format, args...)
}

// WarnfContext logs to WARNING log with context.
var WarnfContext = func(_ context.Context, format string, args ...any) {
	Default.Warnf(format, args...)
}

// ErrorfContext logs to ERROR log with context.
var ErrorfContext = func(_ context.Context, format string, args ...any) {
	Default.Errorf(format, args...)
}
