// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package engagement decides when a content item's interaction activity has
// shifted enough to warrant re-embedding.
//
// Each item's engagement score is compared against the score recorded at its
// last re-embedding. A relative change strictly above the trigger threshold
// qualifies the item and advances the snapshot; anything at or below the
// threshold leaves the snapshot untouched, so small changes accumulate until
// they cross it together.
package engagement

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/model"
)

// DefaultTriggerThreshold is the relative score change above which an item
// is re-embedded.
const DefaultTriggerThreshold = 0.3

// SnapshotMap records the engagement score each item had when it last
// qualified for re-embedding. Safe for concurrent use.
type SnapshotMap struct {
	mu     sync.Mutex
	scores map[string]float64
}

// NewSnapshotMap creates an empty snapshot map.
func NewSnapshotMap() *SnapshotMap {
	return &SnapshotMap{scores: make(map[string]float64)}
}

// Load returns the snapshot score for a content id. Unknown ids return 0.
func (s *SnapshotMap) Load(contentID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[contentID]
}

// Store records the snapshot score for a content id.
func (s *SnapshotMap) Store(contentID string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[contentID] = score
}

// Scorer evaluates engagement score changes against the trigger threshold.
type Scorer struct {
	snapshots *SnapshotMap
	threshold float64
	logger    zerolog.Logger
}

// ScorerConfig holds the scorer configuration.
type ScorerConfig struct {
	// TriggerThreshold is the relative score change that qualifies an item
	// for re-embedding. Default: 0.3
	TriggerThreshold float64 `koanf:"trigger_threshold" validate:"gt=0"`
}

// DefaultScorerConfig returns the default scorer configuration.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{TriggerThreshold: DefaultTriggerThreshold}
}

// NewScorer creates a scorer over the given snapshot map.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewScorer(snapshots *SnapshotMap, cfg ScorerConfig, logger zerolog.Logger) *Scorer {
	if cfg.TriggerThreshold <= 0 {
		cfg.TriggerThreshold = DefaultTriggerThreshold
	}
	return &Scorer{
		snapshots: snapshots,
		threshold: cfg.TriggerThreshold,
		logger:    logger.With().Str("component", "engagement-scorer").Logger(),
	}
}

// EvaluateBatch returns the items whose current engagement score changed by
// strictly more than the threshold relative to their snapshot. Qualified
// items have their snapshot advanced to the current score; the rest keep
// their snapshot so the change keeps accumulating.
func (s *Scorer) EvaluateBatch(items []*model.ContentItem) []event.ArticleRef {
	qualified := make([]event.ArticleRef, 0, len(items))
	for _, item := range items {
		score := item.EngagementScore()
		last := s.snapshots.Load(item.ID)

		change := score
		if last != 0 {
			change = (score - last) / last
		}
		if change <= s.threshold {
			continue
		}

		s.snapshots.Store(item.ID, score)
		qualified = append(qualified, event.ArticleRef{
			ID:       item.ID,
			Category: item.Category,
			Tags:     item.Tags,
		})
		s.logger.Debug().
			Str("content_id", item.ID).
			Float64("score", score).
			Float64("last", last).
			Float64("change", change).
			Msg("engagement change qualified for re-embedding")
	}
	return qualified
}
