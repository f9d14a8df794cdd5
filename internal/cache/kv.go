// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// KV is the key-value surface the cache-aside store is built on.
// Implementations: RedisKV (production) and MemoryKV (tests/development).
//
// The sorted-set operations back the global soft-expiry index: member = cache
// key, score = soft-expiry time in Unix seconds.
type KV interface {
	// Get returns the value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL (0 = no expiry).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// IncrBy atomically adds delta to the integer at key, creating it at
	// zero if absent, and refreshes the TTL. Returns the new value.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// ZAdd adds member with score to the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRangeByScore returns all members of the sorted set at key with
	// score <= max, in ascending score order.
	ZRangeByScore(ctx context.Context, key string, max float64) ([]string, error)

	// ZRem removes members from the sorted set at key.
	ZRem(ctx context.Context, key string, members ...string) error

	// Close releases the underlying connection.
	Close() error
}
