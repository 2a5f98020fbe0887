//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Command taskgraph runs a task spec file and prints one JSON line with the
// outcome, or serves runs over HTTP with -serve.
//
//	taskgraph -spec task.yaml
//	taskgraph -serve :8080 -redis-url redis://localhost:6379/0
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore"
	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore/redis"
	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/orchestrator"
	"trpc.group/trpc-go/trpc-taskgraph-go/server/rest"
	"trpc.group/trpc-go/trpc-taskgraph-go/taskspec"
	"trpc.group/trpc-go/trpc-taskgraph-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-taskgraph-go/telemetry/trace"
)

const (
	eventFinal = "final"
	eventError = "error"

	serviceName     = "taskgraph"
	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process globals. It returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		emit(stdout, eventError, errorData{Message: err.Error()})
		return 2
	}
	log.Default = log.New(stderr, false)
	log.SetLevel(cfg.logLevel)

	if cfg.otel {
		clean, err := startTelemetry(ctx, cfg.otelProtocol)
		if err != nil {
			emit(stdout, eventError, errorData{Message: err.Error()})
			return 1
		}
		defer clean()
	}

	reg, err := defaultRegistry(cfg)
	if err != nil {
		emit(stdout, eventError, errorData{Message: err.Error()})
		return 1
	}
	orch := orchestrator.New(reg, cfg.orchestratorOptions()...)

	var store contextstore.Store
	if cfg.redisURL != "" {
		rs, err := redis.New(redis.WithURL(cfg.redisURL))
		if err != nil {
			emit(stdout, eventError, errorData{Message: err.Error()})
			return 1
		}
		defer rs.Close()
		store = rs
	}
	runOptions := func() []orchestrator.RunOption {
		if store == nil {
			return nil
		}
		return []orchestrator.RunOption{orchestrator.WithContextStore(store)}
	}

	if cfg.serve != "" {
		if err := serve(ctx, cfg.serve, orch, runOptions); err != nil {
			emit(stdout, eventError, errorData{Message: err.Error()})
			return 1
		}
		return 0
	}

	spec, err := taskspec.Load(cfg.specPath)
	if err != nil {
		emit(stdout, eventError, errorData{Message: err.Error()})
		return 1
	}
	res, err := orch.Run(ctx, spec, runOptions()...)
	if err != nil {
		emit(stdout, eventError, errorData{Message: err.Error()})
		return 1
	}
	emit(stdout, eventFinal, finalData{
		Success:   res.Success,
		Result:    res.Result,
		Artifacts: res.Artifacts,
		LogsCount: res.LogsCount,
	})
	if !res.Success {
		return 1
	}
	return 0
}

type finalData struct {
	Success   bool              `json:"success"`
	Result    string            `json:"result"`
	Artifacts map[string]string `json:"artifacts"`
	LogsCount int               `json:"logsCount"`
}

type errorData struct {
	Message string `json:"message"`
}

type event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// emit writes one JSON line.
func emit(w io.Writer, name string, data any) {
	if fd, ok := data.(finalData); ok && fd.Artifacts == nil {
		fd.Artifacts = map[string]string{}
		data = fd
	}
	b, err := json.Marshal(event{Event: name, Data: data})
	if err != nil {
		b = []byte(fmt.Sprintf(`{"event":%q,"data":{"message":%q}}`, eventError, err.Error()))
	}
	fmt.Fprintln(w, string(b))
}

func serve(ctx context.Context, addr string, orch *orchestrator.Orchestrator, runOptions func() []orchestrator.RunOption) error {
	s, err := rest.New(orch, rest.WithRunOptions(runOptions))
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("taskgraph: serving on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func startTelemetry(ctx context.Context, protocol string) (func(), error) {
	cleanTrace, err := trace.Start(ctx, trace.WithProtocol(protocol), trace.WithServiceName(serviceName))
	if err != nil {
		return nil, fmt.Errorf("start tracing: %w", err)
	}
	cleanMetric, err := metric.Start(ctx, metric.WithProtocol(protocol), metric.WithServiceName(serviceName))
	if err != nil {
		if cerr := cleanTrace(); cerr != nil {
			log.Warnf("taskgraph: %v", cerr)
		}
		return nil, fmt.Errorf("start metrics: %w", err)
	}
	return func() {
		if err := cleanMetric(); err != nil {
			log.Warnf("taskgraph: %v", err)
		}
		if err := cleanTrace(); err != nil {
			log.Warnf("taskgraph: %v", err)
		}
	}, nil
}
