//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package rest

import (
	"trpc.group/trpc-go/trpc-taskgraph-go/orchestrator"
)

const (
	defaultBasePath     = "/v1"
	defaultMaxBodyBytes = 1 << 20
)

// Option configures the Server.
type Option func(*options)

type options struct {
	basePath       string
	maxBodyBytes   int64
	allowedOrigins []string
	runOptions     func() []orchestrator.RunOption
}

// WithBasePath sets the prefix of the run and tool routes.
// Default is "/v1".
func WithBasePath(path string) Option {
	return func(o *options) {
		o.basePath = path
	}
}

// WithMaxBodyBytes limits the size of a submitted task spec.
// Default is 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithAllowedOrigins sets the CORS origins. Default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) {
		o.allowedOrigins = origins
	}
}

// WithRunOptions sets a factory for per-run options, called once for every
// submitted run, e.g. to attach a shared context store.
func WithRunOptions(fn func() []orchestrator.RunOption) Option {
	return func(o *options) {
		o.runOptions = fn
	}
}
