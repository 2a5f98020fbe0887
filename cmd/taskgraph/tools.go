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
	"os"

	"trpc.group/trpc-go/trpc-taskgraph-go/log"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/fetch"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/llm"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/search"
	"trpc.group/trpc-go/trpc-taskgraph-go/tool/summarize"
)

// defaultRegistry binds one tool per node kind. The model backed tools are
// used when an API key is configured and -offline is not set.
func defaultRegistry(cfg *config) (*tool.Registry, error) {
	tools := []tool.Tool{
		fetch.NewTool(),
		search.NewTool(),
		summarize.NewTool(),
	}
	if cfg.offline || os.Getenv(llm.EnvAPIKey) == "" {
		log.Debug("taskgraph: using offline answer, structured and eval tools")
		tools = append(tools, llm.NewOfflineTools()...)
	} else {
		tools = append(tools, llm.NewTools(llm.NewModel(cfg.model))...)
	}
	return tool.NewRegistry(tools...)
}
