//
// Tencent is pleased to support the open source community by making trpc-taskgraph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-taskgraph-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "taskgraph:"

var defaultOptions = options{
	keyPrefix: defaultKeyPrefix,
}

type options struct {
	url       string
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// Option configures a Store.
type Option func(*options)

// WithURL sets the redis url.
// scheme: redis://<username>:<password>@<host>:<port>/<db>?<options>
func WithURL(url string) Option {
	return func(o *options) {
		o.url = url
	}
}

// WithClient uses an existing client instead of dialing from a url.
// The store does not close a client it did not create.
func WithClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithKeyPrefix sets the prefix prepended to every key.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithTTL expires stored values after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}
