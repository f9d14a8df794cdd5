// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

type fixture struct {
	engine  *Engine
	durable store.Store
	index   *vector.MemoryIndex
	now     time.Time
}

func padded(head ...float64) []float64 {
	v := make([]float64, vector.Dim)
	copy(v, head)
	return v
}

// newFixture builds an engine over in-memory stores with two categories and
// three indexed content items.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	durable, err := store.NewBadgerStore(store.BadgerConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	if err := durable.PutCategoryVector(ctx, "Tech", padded(1, 0)); err != nil {
		t.Fatalf("PutCategoryVector: %v", err)
	}
	if err := durable.PutCategoryVector(ctx, "Art", padded(0, 1)); err != nil {
		t.Fatalf("PutCategoryVector: %v", err)
	}

	cacheStore := cache.NewStore(cache.NewMemoryKV(), cache.StoreConfig{}, zerolog.Nop())
	table := embedding.NewTable(cacheStore, durable, embedding.TableConfig{}, zerolog.Nop())
	if err := table.Load(ctx); err != nil {
		t.Fatalf("table load: %v", err)
	}
	balancer := interest.NewBalancer(cacheStore, durable, interest.BalancerConfig{}, zerolog.Nop())

	index := vector.NewMemoryIndex()
	items := []struct {
		id  string
		vec []float64
	}{
		{"tech-1", padded(1, 0)},
		{"tech-2", padded(0.9, 0.1)},
		{"art-1", padded(0, 1)},
	}
	for _, it := range items {
		if err := durable.PutContent(ctx, &model.ContentItem{ID: it.id, Title: it.id}); err != nil {
			t.Fatalf("PutContent %s: %v", it.id, err)
		}
		err := index.Upsert(ctx, "content", []vector.Point{{
			ID:      vector.DeterministicID(it.id),
			Vector:  it.vec,
			Payload: map[string]any{"content_id": it.id},
		}})
		if err != nil {
			t.Fatalf("Upsert %s: %v", it.id, err)
		}
	}

	engine := NewEngine(table, balancer, durable, index, "content", EngineConfig{}, zerolog.Nop())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return now })

	return &fixture{engine: engine, durable: durable, index: index, now: now}
}

func (f *fixture) setProfile(t *testing.T, userID string, entries []model.InterestEntry) {
	t.Helper()
	if err := f.durable.UpsertUserInterests(context.Background(), userID, entries); err != nil {
		t.Fatalf("UpsertUserInterests: %v", err)
	}
}

func TestRecommendRanksBySimilarity(t *testing.T) {
	f := newFixture(t)
	f.setProfile(t, "u1", []model.InterestEntry{{Topic: "Tech", Weight: 1}})

	results, err := f.engine.Recommend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Content.ID != "tech-1" || results[1].Content.ID != "tech-2" {
		t.Fatalf("expected tech items ranked first, got [%s %s]",
			results[0].Content.ID, results[1].Content.ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatal("results not in descending score order")
		}
	}
}

func TestRecommendExcludesRecentlyViewed(t *testing.T) {
	f := newFixture(t)
	f.setProfile(t, "u1", []model.InterestEntry{{Topic: "Tech", Weight: 1}})
	ctx := context.Background()

	recent := f.now.Add(-24 * time.Hour)
	old := f.now.Add(-72 * time.Hour)
	liked := true
	err := f.durable.UpsertInteractions(ctx, "u1", []model.InteractionDelta{
		{ContentID: "tech-1", ViewedAt: &recent},
		{ContentID: "tech-2", Like: &liked, ViewedAt: &old},
	})
	if err != nil {
		t.Fatalf("UpsertInteractions: %v", err)
	}

	results, err := f.engine.Recommend(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	// tech-1 was viewed a day ago and is excluded; tech-2 was viewed three
	// days ago, so it survives with its like annotation.
	for _, r := range results {
		if r.Content.ID == "tech-1" {
			t.Fatal("expected recently viewed tech-1 to be excluded")
		}
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content.ID != "tech-2" || !results[0].Liked {
		t.Fatalf("expected tech-2 first with Liked=true, got %+v", results[0])
	}
}

func TestRecommendColdStartUsesMeanVector(t *testing.T) {
	f := newFixture(t)

	// No profile anywhere: the mean of Tech and Art still yields results.
	results, err := f.engine.Recommend(context.Background(), "newcomer", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected cold-start results, got %d", len(results))
	}
}

func TestRecommendUnknownTopicsSkipped(t *testing.T) {
	f := newFixture(t)
	f.setProfile(t, "u1", []model.InterestEntry{
		{Topic: "Tech", Weight: 0.5},
		{Topic: "Quantum", Weight: 0.5}, // not in the table
	})

	results, err := f.engine.Recommend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results despite unknown topic")
	}
	if results[0].Content.ID != "tech-1" {
		t.Fatalf("expected tech-1 first, got %s", results[0].Content.ID)
	}
}

func TestRecommendEmptyTableUnavailable(t *testing.T) {
	durable, err := store.NewBadgerStore(store.BadgerConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	cacheStore := cache.NewStore(cache.NewMemoryKV(), cache.StoreConfig{}, zerolog.Nop())
	table := embedding.NewTable(cacheStore, durable, embedding.TableConfig{}, zerolog.Nop())
	balancer := interest.NewBalancer(cacheStore, durable, interest.BalancerConfig{}, zerolog.Nop())
	engine := NewEngine(table, balancer, durable, vector.NewMemoryIndex(), "content",
		EngineConfig{}, zerolog.Nop())

	if _, err := engine.Recommend(context.Background(), "u1", 3); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRecommendEmptyIndexIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Remove all points: "no recommendations" is a valid result.
	ids, err := f.index.ListIDs(ctx, "content")
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if err := f.index.Delete(ctx, "content", ids); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	results, err := f.engine.Recommend(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}
