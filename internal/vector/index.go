// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package vector provides the similarity index.
//
// Points are stored under deterministic ids derived from the content id, so
// re-upserting an item's embedding replaces the previous point instead of
// accumulating duplicates. Search is cosine similarity over a fixed
// dimensionality shared with the embedding composer.
package vector

import (
	"context"

	"github.com/google/uuid"
)

// Dim is the embedding dimensionality shared by all collections.
const Dim = 14

// Point is a single embedding with its payload metadata.
type Point struct {
	// ID is the point id in the index, derived via DeterministicID.
	ID string

	// Vector is the embedding, of length Dim.
	Vector []float64

	// Payload carries metadata; "content_id" maps hits back to content.
	Payload map[string]any
}

// Hit is a single search result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Index is the similarity index interface.
type Index interface {
	// Upsert inserts or replaces points in the collection in one call.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the top-limit points most similar to query,
	// in descending similarity order.
	Search(ctx context.Context, collection string, query []float64, limit int) ([]Hit, error)

	// ListIDs returns the ids of all points in the collection.
	ListIDs(ctx context.Context, collection string) ([]string, error)

	// Delete removes the points with the given ids from the collection.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases the underlying client.
	Close() error
}

// DeterministicID derives the stable point id for a content id. The same
// content id always maps to the same point id.
func DeterministicID(contentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(contentID)).String()
}

// ContentIDFromPayload extracts the content id a hit refers to, if present.
func ContentIDFromPayload(payload map[string]any) (string, bool) {
	v, ok := payload["content_id"]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
