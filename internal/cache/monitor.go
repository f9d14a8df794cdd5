// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/metrics"
)

// DefaultPollInterval is how often the monitor pops due index entries.
const DefaultPollInterval = 1 * time.Second

// FlushFunc persists a cache payload to the durable store before eviction.
// Returning an error leaves the index entry in place for the next poll.
type FlushFunc func(ctx context.Context, key string, payload []byte) error

type flusher struct {
	prefix string
	suffix string
	fn     FlushFunc
}

func (f flusher) matches(key string) bool {
	return strings.HasPrefix(key, f.prefix) &&
		strings.HasSuffix(key, f.suffix) &&
		len(key) >= len(f.prefix)+len(f.suffix)
}

// Monitor is the background soft-expiry task. It implements suture.Service
// and runs until its context is canceled.
//
// On each tick it pops every index entry whose soft-expiry is due. Keys with
// a registered flusher are durable-backed derived state: the cached payload
// is written through the flusher, then the cache key and the index entry are
// removed together. Keys without a flusher only lose their index entry; the
// backend's own TTL reclaims the value. Flush and backend errors leave the
// index entry to be retried on the next poll.
type Monitor struct {
	store    *Store
	interval time.Duration
	flushers []flusher
	logger   zerolog.Logger
}

// NewMonitor creates a soft-expiry monitor over the given store.
// A non-positive interval falls back to DefaultPollInterval.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMonitor(store *Store, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "cache-monitor").Logger(),
	}
}

// RegisterFlusher binds a flush function to a key pattern. The pattern is a
// literal string with at most one '*' wildcard, e.g. "user:*:interest".
// Registration is not synchronized; register all flushers before the
// monitor starts serving.
func (m *Monitor) RegisterFlusher(pattern string, fn FlushFunc) {
	prefix, suffix, _ := strings.Cut(pattern, "*")
	m.flushers = append(m.flushers, flusher{prefix: prefix, suffix: suffix, fn: fn})
}

// Serve runs the poll loop until ctx is canceled. Implements suture.Service.
func (m *Monitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll processes all index entries due at the store's current clock.
// Exported so tests can drive the monitor without the ticker.
func (m *Monitor) Poll(ctx context.Context) {
	due, err := m.store.kv.ZRangeByScore(ctx, m.store.config.IndexKey, unixScore(m.store.now()))
	if err != nil {
		m.logger.Error().Err(err).Msg("soft-expiry index read failed")
		return
	}

	for _, key := range due {
		m.processKey(ctx, key)
	}
}

func (m *Monitor) processKey(ctx context.Context, key string) {
	fn := m.flusherFor(key)
	if fn == nil {
		m.removeIndexEntry(ctx, key)
		return
	}

	payload, err := m.store.kv.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		// Value already gone; nothing left to flush.
		m.removeIndexEntry(ctx, key)
		return
	}
	if err != nil {
		metrics.RecordCacheFlushError()
		m.logger.Error().Err(err).Str("key", key).Msg("cache read failed, will retry")
		return
	}

	if err := fn(ctx, key, payload); err != nil {
		metrics.RecordCacheFlushError()
		m.logger.Error().Err(err).Str("key", key).Msg("durable flush failed, will retry")
		return
	}

	if err := m.store.kv.Delete(ctx, key); err != nil {
		metrics.RecordCacheFlushError()
		m.logger.Error().Err(err).Str("key", key).Msg("cache delete failed, will retry")
		return
	}

	m.removeIndexEntry(ctx, key)
	metrics.RecordCacheFlush()
	m.logger.Debug().Str("key", key).Msg("flushed to durable store before expiry")
}

func (m *Monitor) flusherFor(key string) FlushFunc {
	for _, f := range m.flushers {
		if f.matches(key) {
			return f.fn
		}
	}
	return nil
}

func (m *Monitor) removeIndexEntry(ctx context.Context, key string) {
	if err := m.store.kv.ZRem(ctx, m.store.config.IndexKey, key); err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("index entry removal failed")
	}
}
