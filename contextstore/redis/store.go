//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a Redis backed context store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-taskgraph-go/contextstore"
)

var _ contextstore.Store = (*Store)(nil)

// scanCount is the COUNT hint for SCAN iterations.
const scanCount = 100

// Store keeps documents as plain redis strings.
type Store struct {
	opts       options
	client     redis.UniversalClient
	ownsClient bool
	once       sync.Once
}

// New creates a store from a url or an existing client.
func New(opts ...Option) (*Store, error) {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.client != nil {
		return &Store{opts: o, client: o.client}, nil
	}
	client, err := newClient(o.url)
	if err != nil {
		return nil, err
	}
	return &Store{opts: o, client: client, ownsClient: true}, nil
}

func newClient(url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, errors.New("redis: url is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url %s: %w", url, err)
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		Protocol:     opts.Protocol,
		ClientName:   opts.ClientName,
		TLSConfig:    opts.TLSConfig,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	}), nil
}

func (s *Store) key(k string) string {
	return s.opts.keyPrefix + k
}

// Get implements contextstore.Store.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", contextstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Put implements contextstore.Store.
func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements contextstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// List implements contextstore.Store. It walks the keyspace with SCAN so it
// never blocks the server the way KEYS would.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := escapeGlob(s.key(prefix)) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.opts.keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return dedupe(keys), nil
}

// Close closes the client if the store created it.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		if s.ownsClient {
			err = s.client.Close()
		}
	})
	return err
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

// dedupe removes adjacent duplicates; SCAN may return a key more than once.
func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, k := range sorted[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
