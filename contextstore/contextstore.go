//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package contextstore defines the optional durable document store used by
// tools whose artifacts must outlive a single run.
package contextstore

import (
	"context"
	"errors"
	"path"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("contextstore: key not found")

// Store is a durable key/value document store.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Put stores value under key.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns the keys starting with prefix in sorted order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ArtifactKey returns the key under which a run's artifact is persisted.
func ArtifactKey(runID, name string) string {
	return path.Join("runs", runID, "artifacts", name)
}

// ArtifactPrefix returns the key prefix shared by all artifacts of a run.
func ArtifactPrefix(runID string) string {
	return path.Join("runs", runID, "artifacts") + "/"
}
