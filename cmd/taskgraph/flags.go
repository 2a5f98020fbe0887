//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/orchestrator"
)

type config struct {
	specPath      string
	concurrency   int
	timeout       time.Duration
	nodeTimeout   time.Duration
	failurePolicy orchestrator.FailurePolicy
	retries       int
	logLevel      string
	redisURL      string
	persist       bool
	serve         string
	otel          bool
	otelProtocol  string
	model         string
	offline       bool
}

func parseFlags(args []string, output io.Writer) (*config, error) {
	fs := flag.NewFlagSet("taskgraph", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		cfg    config
		policy string
	)
	fs.StringVar(&cfg.specPath, "spec", "", "Task spec file (.json, .yaml or .yml)")
	fs.IntVar(&cfg.concurrency, "concurrency", 8, "Maximum nodes running at once")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "Run timeout, 0 for none")
	fs.DurationVar(&cfg.nodeTimeout, "node-timeout", 0, "Per tool call timeout, 0 for none")
	fs.StringVar(&policy, "failure-policy", string(orchestrator.SkipDependents),
		"What happens after a node error: skip_dependents, halt_all or continue_all")
	fs.IntVar(&cfg.retries, "retries", 1, "Attempts per tool call")
	fs.StringVar(&cfg.logLevel, "log-level", log.LevelInfo, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "Redis URL of the context store")
	fs.BoolVar(&cfg.persist, "persist", true, "Write artifacts to the context store at run end")
	fs.StringVar(&cfg.serve, "serve", "", "Serve runs over HTTP on this address instead of running -spec")
	fs.BoolVar(&cfg.otel, "otel", false, "Export spans and metrics over OTLP")
	fs.StringVar(&cfg.otelProtocol, "otel-protocol", "grpc", "OTLP protocol: grpc or http")
	fs.StringVar(&cfg.model, "model", "", "Chat model for the answer, structured and eval tools")
	fs.BoolVar(&cfg.offline, "offline", false, "Use the offline answer, structured and eval tools")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.specPath == "" && cfg.serve == "" {
		return nil, errors.New("either -spec or -serve is required")
	}
	p, err := orchestrator.ParseFailurePolicy(policy)
	if err != nil {
		return nil, err
	}
	cfg.failurePolicy = p
	if cfg.otelProtocol != "grpc" && cfg.otelProtocol != "http" {
		return nil, fmt.Errorf("unsupported otel protocol %q", cfg.otelProtocol)
	}
	return &cfg, nil
}

func (c *config) orchestratorOptions() []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithConcurrency(c.concurrency),
		orchestrator.WithRunTimeout(c.timeout),
		orchestrator.WithNodeTimeout(c.nodeTimeout),
		orchestrator.WithFailurePolicy(c.failurePolicy),
		orchestrator.WithRetry(c.retries, 0),
		orchestrator.WithPersistArtifacts(c.persist && c.redisURL != ""),
	}
}
