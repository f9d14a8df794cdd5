// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package embedding derives content vectors from category and tag vectors
// plus an interaction bias, and maintains the category embedding table the
// derivation reads from.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

// DefaultTableCacheKey is the cache key holding the serialized table.
const DefaultTableCacheKey = "catvec:all"

// DefaultTableCacheTTL bounds how long a cached table is served before the
// durable store is consulted again.
const DefaultTableCacheTTL = 1 * time.Hour

// TableConfig holds the category embedding table configuration.
type TableConfig struct {
	// CacheKey is the cache entry holding the serialized table.
	// Default: catvec:all
	CacheKey string `koanf:"cache_key"`

	// CacheTTL is how long the serialized table stays cached. Default: 1h
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gt=0"`
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		CacheKey: DefaultTableCacheKey,
		CacheTTL: DefaultTableCacheTTL,
	}
}

// Table is the in-process category/tag embedding table. Load populates it
// cache-through from the durable store; lookups afterwards are memory reads.
// Safe for concurrent use.
type Table struct {
	cache   *cache.Store
	durable store.Store
	config  TableConfig
	logger  zerolog.Logger

	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewTable creates an empty table backed by the given cache and store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTable(cacheStore *cache.Store, durable store.Store, cfg TableConfig, logger zerolog.Logger) *Table {
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultTableCacheKey
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultTableCacheTTL
	}
	return &Table{
		cache:   cacheStore,
		durable: durable,
		config:  cfg,
		logger:  logger.With().Str("component", "embedding-table").Logger(),
		vectors: make(map[string][]float64),
	}
}

// Load populates the table. The cached serialization is preferred; on a miss
// the durable store is read and the result cached for the configured TTL.
func (t *Table) Load(ctx context.Context) error {
	if payload, err := t.cache.Get(ctx, t.config.CacheKey); err == nil {
		var vectors map[string][]float64
		if err := json.Unmarshal(payload, &vectors); err == nil {
			t.replace(vectors)
			return nil
		}
		t.logger.Warn().Msg("cached embedding table is corrupt, reloading from durable store")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		t.logger.Warn().Err(err).Msg("embedding table cache read failed, falling back to durable store")
	}

	vectors, err := t.durable.ListCategoryVectors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load category vectors: %w", err)
	}
	t.replace(vectors)

	payload, err := json.Marshal(vectors)
	if err != nil {
		return fmt.Errorf("failed to encode embedding table: %w", err)
	}
	if err := t.cache.Set(ctx, t.config.CacheKey, payload, t.config.CacheTTL); err != nil {
		t.logger.Warn().Err(err).Msg("failed to cache embedding table")
	}
	t.logger.Info().Int("vectors", len(vectors)).Msg("loaded category embedding table")
	return nil
}

func (t *Table) replace(vectors map[string][]float64) {
	if vectors == nil {
		vectors = make(map[string][]float64)
	}
	t.mu.Lock()
	t.vectors = vectors
	t.mu.Unlock()
}

// Lookup returns the vector for a category or tag name. The second return is
// false when the name is unknown.
func (t *Table) Lookup(name string) ([]float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vectors[name]
	return v, ok
}

// Len returns the number of vectors in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vectors)
}

// Mean returns the unweighted average of all vectors in the table, used as
// the cold-start user vector. An empty table yields a zero vector.
func (t *Table) Mean() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	mean := make([]float64, vector.Dim)
	if len(t.vectors) == 0 {
		return mean
	}
	for _, v := range t.vectors {
		for i := 0; i < len(v) && i < vector.Dim; i++ {
			mean[i] += v[i]
		}
	}
	n := float64(len(t.vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}
