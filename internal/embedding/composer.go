// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

// Composition coefficients. The category vector carries 70% of the content
// vector and the tag vectors share the remaining 30% equally.
const (
	categoryWeight = 0.7
	tagWeightTotal = 0.3
)

// Composer derives content vectors and upserts them into the vector index.
// Composition is idempotent: identical inputs produce an identical vector
// under the same deterministic point id.
type Composer struct {
	table      *Table
	durable    store.Store
	index      vector.Index
	collection string
	logger     zerolog.Logger
}

// NewComposer creates a composer writing into the given index collection.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewComposer(table *Table, durable store.Store, index vector.Index, collection string, logger zerolog.Logger) *Composer {
	return &Composer{
		table:      table,
		durable:    durable,
		index:      index,
		collection: collection,
		logger:     logger.With().Str("component", "embedding-composer").Logger(),
	}
}

// ComposeBatch derives a vector for every referenced item and upserts the
// whole batch into the index in one call. The interaction bias is recomputed
// from the items' current counters, independent of whatever change triggered
// the re-embedding.
func (c *Composer) ComposeBatch(ctx context.Context, refs []event.ArticleRef) error {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	items, err := c.durable.GetContents(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch content for embedding: %w", err)
	}
	counters := make(map[string]model.EngagementCounters, len(items))
	for _, item := range items {
		counters[item.ID] = item.Engagement
	}

	points := make([]vector.Point, len(refs))
	for i, ref := range refs {
		vec := c.compose(ref, counters[ref.ID])
		points[i] = vector.Point{
			ID:     vector.DeterministicID(ref.ID),
			Vector: vec,
			Payload: map[string]any{
				"content_id": ref.ID,
				"category":   ref.Category,
			},
		}
	}

	if err := c.index.Upsert(ctx, c.collection, points); err != nil {
		return fmt.Errorf("failed to upsert content vectors: %w", err)
	}
	c.logger.Debug().Int("count", len(points)).Msg("composed and upserted content vectors")
	return nil
}

// compose builds one content vector:
//
//	v[i] = 0.7*category[i] + sum_tag (0.3/max(1,#tags))*tag[i] + bias
//
// where bias is the item's current engagement score added to every
// dimension. Unknown category or tag names contribute a zero vector.
func (c *Composer) compose(ref event.ArticleRef, counters model.EngagementCounters) []float64 {
	vec := make([]float64, vector.Dim)

	cat, ok := c.table.Lookup(ref.Category)
	if !ok {
		c.logger.Warn().
			Str("content_id", ref.ID).
			Str("category", ref.Category).
			Msg("no vector for category, using zero vector")
	}
	addScaled(vec, cat, categoryWeight)

	tagWeight := tagWeightTotal / float64(max(1, len(ref.Tags)))
	for _, tag := range ref.Tags {
		tv, ok := c.table.Lookup(tag)
		if !ok {
			c.logger.Warn().
				Str("content_id", ref.ID).
				Str("tag", tag).
				Msg("no vector for tag, using zero vector")
			continue
		}
		addScaled(vec, tv, tagWeight)
	}

	bias := model.Score(counters)
	for i := range vec {
		vec[i] += bias
	}
	return vec
}

func addScaled(dst, src []float64, weight float64) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] += weight * src[i]
	}
}
