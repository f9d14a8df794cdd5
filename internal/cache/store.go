// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package cache implements the cache-aside store with soft-TTL
// eviction-with-flush.
//
// Every Set registers (key, hard-expiry - margin) in a global time-ordered
// index. The Monitor pops due index entries on a fixed interval; keys that
// carry derived mutable state are flushed to the durable store before the
// cache entry is removed, so a lapsed TTL never silently loses a write.
// Reads never block on the durable store: Get returns ErrCacheMiss and the
// caller decides whether to fall through.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/metrics"
)

// DefaultIndexKey is the sorted set holding (key, soft-expiry) pairs.
const DefaultIndexKey = "cache:expiry-index"

// DefaultSoftExpiryMargin is how long before the hard TTL the flush runs.
const DefaultSoftExpiryMargin = 2 * time.Second

// StoreConfig holds cache-aside store configuration.
type StoreConfig struct {
	// IndexKey is the sorted set used as the global soft-expiry index.
	// Default: cache:expiry-index
	IndexKey string

	// SoftExpiryMargin is subtracted from the hard TTL to schedule the
	// flush. Default: 2s
	SoftExpiryMargin time.Duration
}

// Store is the cache-aside store over a KV backend.
// It is safe for concurrent use; all synchronization lives in the backend.
type Store struct {
	kv     KV
	config StoreConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a cache-aside store over the given KV backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(kv KV, cfg StoreConfig, logger zerolog.Logger) *Store {
	if cfg.IndexKey == "" {
		cfg.IndexKey = DefaultIndexKey
	}
	if cfg.SoftExpiryMargin <= 0 {
		cfg.SoftExpiryMargin = DefaultSoftExpiryMargin
	}
	return &Store{
		kv:     kv,
		config: cfg,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}
}

// SetClock replaces the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Set stores value under key for ttl and registers exactly one soft-expiry
// index entry at now+ttl-margin. A ttl at or below the margin schedules the
// flush immediately rather than skipping it.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.kv.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	soft := ttl - s.config.SoftExpiryMargin
	if soft < 0 {
		soft = 0
	}
	softExpiry := s.now().Add(soft)
	return s.kv.ZAdd(ctx, s.config.IndexKey, unixScore(softExpiry), key)
}

// Get returns the cached value or ErrCacheMiss. It never consults the
// durable store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		metrics.RecordCacheMiss()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheHit()
	return value, nil
}

// Increment atomically increments the counter at key, refreshing its TTL,
// and returns the new count.
func (s *Store) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return s.kv.IncrBy(ctx, key, 1, ttl)
}

// Delete removes key and its soft-expiry index entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return err
	}
	return s.kv.ZRem(ctx, s.config.IndexKey, key)
}

// unixScore converts a time to the index's sorted-set score: Unix seconds
// with millisecond resolution.
func unixScore(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000.0
}
