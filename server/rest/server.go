//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package rest exposes the orchestrator over HTTP.
//
// Routes, relative to the base path:
//
//	POST /runs   submit a task spec and wait for its RunResult
//	GET  /tools  list the registered tool names
//
// plus GET /healthz at the root. A run that fails still answers 200 with
// its RunResult; only undecodable requests get a 4xx.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/orchestrator"
	"trpc.group/trpc-go/trpc-taskgraph-go/taskspec"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Server serves runs of one orchestrator.
type Server struct {
	orch    *orchestrator.Orchestrator
	opts    options
	router  *mux.Router
	handler http.Handler
}

// New creates a server for the orchestrator.
func New(orch *orchestrator.Orchestrator, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, errors.New("rest: orchestrator is required")
	}
	o := options{
		basePath:     defaultBasePath,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.basePath = "/" + strings.Trim(o.basePath, "/")
	if o.basePath == "/" {
		o.basePath = ""
	}
	if len(o.allowedOrigins) == 0 {
		o.allowedOrigins = []string{"*"}
	}

	s := &Server{orch: orch, opts: o, router: mux.NewRouter()}
	s.registerRoutes()
	c := cors.New(cors.Options{
		AllowedOrigins: o.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.handler = c.Handler(s.router)
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// BasePath returns the prefix of the run and tool routes.
func (s *Server) BasePath() string {
	return s.opts.basePath
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := s.router
	if s.opts.basePath != "" {
		api = s.router.PathPrefix(s.opts.basePath).Subrouter()
	}
	api.HandleFunc("/runs", s.handleRun).Methods(http.MethodPost)
	api.HandleFunc("/tools", s.handleTools).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tools": s.orch.Registry().Names()})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	format := taskspec.FormatJSON
	if strings.Contains(r.Header.Get(headerContentType), "yaml") {
		format = taskspec.FormatYAML
	}
	spec, err := taskspec.Parse(data, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var runOpts []orchestrator.RunOption
	if s.opts.runOptions != nil {
		runOpts = s.opts.runOptions()
	}
	res, err := s.orch.Run(r.Context(), spec, runOpts...)
	if err != nil {
		log.Warnf("rest: run %s failed: %v", res.RunID, err)
	}
	writeJSON(w, http.StatusOK, res)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("rest: encode response: %v", err)
	}
}
