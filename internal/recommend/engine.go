// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package recommend ranks content for a user by similarity between the
// user's interest vector and the content vectors in the index.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/metrics"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

// ErrUnavailable is returned when the embedding table holds no vectors, so
// no user vector can be built at all.
var ErrUnavailable = errors.New("recommendation engine unavailable: embedding table is empty")

// DefaultRecentViewWindow is how long a viewed item stays excluded.
const DefaultRecentViewWindow = 48 * time.Hour

// DefaultTopK is the default number of candidates fetched from the index.
const DefaultTopK = 10

// Recommendation is one ranked result. Liked reflects the user's stored
// interaction state for the item.
type Recommendation struct {
	Content *model.ContentItem `json:"content"`
	Score   float64            `json:"score"`
	Liked   bool               `json:"liked"`
}

// EngineConfig holds the recommendation engine configuration.
type EngineConfig struct {
	// TopK is the number of candidates fetched from the vector index.
	// Default: 10
	TopK int `koanf:"top_k" validate:"gt=0"`

	// RecentViewWindow excludes items the user viewed within this window.
	// Default: 48h
	RecentViewWindow time.Duration `koanf:"recent_view_window" validate:"gt=0"`
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TopK:             DefaultTopK,
		RecentViewWindow: DefaultRecentViewWindow,
	}
}

// Engine computes recommendations for a user.
type Engine struct {
	table      *embedding.Table
	balancer   *interest.Balancer
	durable    store.Store
	index      vector.Index
	collection string
	config     EngineConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine creates a recommendation engine over the given collaborators.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(table *embedding.Table, balancer *interest.Balancer, durable store.Store,
	index vector.Index, collection string, cfg EngineConfig, logger zerolog.Logger,
) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.RecentViewWindow <= 0 {
		cfg.RecentViewWindow = DefaultRecentViewWindow
	}
	return &Engine{
		table:      table,
		balancer:   balancer,
		durable:    durable,
		index:      index,
		collection: collection,
		config:     cfg,
		logger:     logger.With().Str("component", "recommend-engine").Logger(),
		now:        time.Now,
	}
}

// SetClock replaces the engine's clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Recommend returns up to topK content items ranked by similarity to the
// user's interest vector, descending. Items the user viewed within the
// recent-view window are excluded. An empty result is valid, not an error.
// A non-positive topK falls back to the configured default.
func (e *Engine) Recommend(ctx context.Context, userID string, topK int) ([]Recommendation, error) {
	start := e.now()
	defer func() {
		metrics.ObserveRecommendationDuration(time.Since(start).Seconds())
	}()

	if topK <= 0 {
		topK = e.config.TopK
	}
	if e.table.Len() == 0 {
		return nil, ErrUnavailable
	}

	userVec, err := e.userVector(ctx, userID)
	if err != nil {
		return nil, err
	}

	hits, err := e.index.Search(ctx, e.collection, userVec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search content vectors: %w", err)
	}
	if len(hits) == 0 {
		return []Recommendation{}, nil
	}

	contentIDs := make([]string, 0, len(hits))
	scores := make(map[string]float64, len(hits))
	for _, hit := range hits {
		id, ok := vector.ContentIDFromPayload(hit.Payload)
		if !ok {
			e.logger.Warn().Str("point_id", hit.ID).Msg("vector hit without content id, skipping")
			continue
		}
		contentIDs = append(contentIDs, id)
		scores[id] = hit.Score
	}

	items, err := e.durable.GetContents(ctx, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommended content: %w", err)
	}
	records, err := e.durable.GetInteractions(ctx, userID, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interaction records: %w", err)
	}
	interactions := make(map[string]model.InteractionRecord, len(records))
	for _, r := range records {
		interactions[r.ContentID] = r
	}

	cutoff := e.now().Add(-e.config.RecentViewWindow)
	results := make([]Recommendation, 0, len(items))
	for _, item := range items {
		record, seen := interactions[item.ID]
		if seen && record.LastViewedAt != nil && record.LastViewedAt.After(cutoff) {
			continue
		}
		results = append(results, Recommendation{
			Content: item,
			Score:   scores[item.ID],
			Liked:   seen && record.Liked,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// userVector builds the query vector from the user's interest profile. A
// user with no profile falls back to the mean of all category vectors so
// cold-start users still get results. Topics without a table vector are
// skipped.
func (e *Engine) userVector(ctx context.Context, userID string) ([]float64, error) {
	profile, err := e.balancer.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(profile) == 0 {
		e.logger.Debug().Str("user_id", userID).Msg("no interest profile, using mean category vector")
		return e.table.Mean(), nil
	}

	vec := make([]float64, vector.Dim)
	for _, entry := range profile {
		tv, ok := e.table.Lookup(entry.Topic)
		if !ok {
			continue
		}
		for i := 0; i < len(tv) && i < vector.Dim; i++ {
			vec[i] += entry.Weight * tv[i]
		}
	}
	return vec, nil
}
