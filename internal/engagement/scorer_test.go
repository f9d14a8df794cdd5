// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package engagement

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/model"
)

func newTestScorer() (*Scorer, *SnapshotMap) {
	snapshots := NewSnapshotMap()
	return NewScorer(snapshots, ScorerConfig{}, zerolog.Nop()), snapshots
}

func item(id string, likes, shares, clicks int64) *model.ContentItem {
	return &model.ContentItem{
		ID:         id,
		Category:   "Tech",
		Tags:       []string{"go"},
		Engagement: model.EngagementCounters{Likes: likes, Shares: shares, Clicks: clicks},
	}
}

func TestScoreWeights(t *testing.T) {
	// 100 likes score 40 on their own.
	got := model.Score(model.EngagementCounters{Likes: 100})
	if got != 40 {
		t.Fatalf("expected score 40 for 100 likes, got %f", got)
	}

	got = model.Score(model.EngagementCounters{Likes: 10, Shares: 10, Clicks: 10})
	if got != 10 {
		t.Fatalf("expected score 10, got %f", got)
	}
}

func TestEvaluateBatchFirstObservation(t *testing.T) {
	scorer, snapshots := newTestScorer()

	// No snapshot: relative change equals the score itself.
	qualified := scorer.EvaluateBatch([]*model.ContentItem{item("c1", 100, 0, 0)})
	if len(qualified) != 1 {
		t.Fatalf("expected 1 qualified item, got %d", len(qualified))
	}
	ref := qualified[0]
	if ref.ID != "c1" || ref.Category != "Tech" || len(ref.Tags) != 1 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if got := snapshots.Load("c1"); got != 40 {
		t.Fatalf("expected snapshot 40, got %f", got)
	}
}

func TestEvaluateBatchThresholdIsStrict(t *testing.T) {
	scorer, snapshots := newTestScorer()
	snapshots.Store("c1", 10)

	// Score 13 means relative change exactly 0.3, which must NOT trigger.
	qualified := scorer.EvaluateBatch([]*model.ContentItem{item("c1", 10, 30, 0)})
	if len(qualified) != 0 {
		t.Fatalf("expected change of exactly 0.3 to not trigger, got %d items", len(qualified))
	}
	if got := snapshots.Load("c1"); got != 10 {
		t.Fatalf("expected snapshot untouched at 10, got %f", got)
	}
}

func TestEvaluateBatchBelowThresholdAccumulates(t *testing.T) {
	scorer, snapshots := newTestScorer()
	snapshots.Store("c1", 10)

	// Change 0.2: no trigger, snapshot stays, so the next small improvement
	// is measured against the old baseline and can cross the bar.
	if q := scorer.EvaluateBatch([]*model.ContentItem{item("c1", 30, 0, 0)}); len(q) != 0 {
		t.Fatalf("expected no trigger at change 0.2, got %d", len(q))
	}
	if got := snapshots.Load("c1"); got != 10 {
		t.Fatalf("expected snapshot to stay 10, got %f", got)
	}

	// Score 14 against the unchanged baseline of 10 is change 0.4.
	q := scorer.EvaluateBatch([]*model.ContentItem{item("c1", 35, 0, 0)})
	if len(q) != 1 {
		t.Fatalf("expected accumulated change to trigger, got %d", len(q))
	}
	if got := snapshots.Load("c1"); got != 14 {
		t.Fatalf("expected snapshot advanced to 14, got %f", got)
	}
}

func TestEvaluateBatchMixedBatch(t *testing.T) {
	scorer, snapshots := newTestScorer()
	snapshots.Store("hot", 10)
	snapshots.Store("cold", 10)

	items := []*model.ContentItem{
		item("hot", 20, 0, 0),  // score 8, change -0.2
		item("cold", 25, 0, 0), // score 10, change 0
		item("new", 1, 0, 0),   // score 0.4, first observation, triggers
	}
	qualified := scorer.EvaluateBatch(items)
	if len(qualified) != 1 || qualified[0].ID != "new" {
		t.Fatalf("expected only the new item to qualify, got %+v", qualified)
	}
}

func TestEvaluateBatchEmptyResult(t *testing.T) {
	scorer, snapshots := newTestScorer()
	snapshots.Store("c1", 40)

	// Identical score: zero change, nothing qualifies, empty (non-nil) result.
	qualified := scorer.EvaluateBatch([]*model.ContentItem{item("c1", 100, 0, 0)})
	if len(qualified) != 0 {
		t.Fatalf("expected empty result, got %d", len(qualified))
	}
}
