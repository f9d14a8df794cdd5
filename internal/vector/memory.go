// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory implementation of Index for tests and
// development. Search is brute-force cosine over all points.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]Point
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string]map[string]Point),
	}
}

// Upsert inserts or replaces points in the collection.
func (m *MemoryIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	if coll == nil {
		coll = make(map[string]Point)
		m.collections[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

// Search returns the top-limit points by cosine similarity, descending.
func (m *MemoryIndex) Search(ctx context.Context, collection string, query []float64, limit int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	hits := make([]Hit, 0, len(coll))
	for id, p := range coll {
		hits = append(hits, Hit{
			ID:      id,
			Score:   Cosine(query, p.Vector),
			Payload: p.Payload,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Point returns the stored point with the given id.
func (m *MemoryIndex) Point(collection, id string) (Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.collections[collection][id]
	return p, ok
}

// ListIDs returns the ids of all points in the collection, sorted.
func (m *MemoryIndex) ListIDs(ctx context.Context, collection string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the points with the given ids.
func (m *MemoryIndex) Delete(ctx context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// Close is a no-op for the in-memory index.
func (m *MemoryIndex) Close() error { return nil }

// Cosine computes the cosine similarity of two vectors. Mismatched lengths
// or zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Index = (*MemoryIndex)(nil)
