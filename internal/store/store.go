// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package store provides the durable document store.
//
// Documents are kept in keyed collections (content, users, interactions,
// category embeddings) with bulk-upsert and lookup operations. The Badger
// implementation stores JSON documents under collection key prefixes.
package store

import (
	"context"
	"errors"

	"github.com/jhasudarshan/recommendation-system/internal/model"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the durable document store interface.
// All methods are safe for concurrent use.
type Store interface {
	// PutContent inserts or replaces a content item.
	PutContent(ctx context.Context, item *model.ContentItem) error

	// GetContent returns the content item with the given id, or ErrNotFound.
	GetContent(ctx context.Context, id string) (*model.ContentItem, error)

	// GetContents returns the content items for the given ids. Missing ids
	// are silently skipped; the result preserves the input order.
	GetContents(ctx context.Context, ids []string) ([]*model.ContentItem, error)

	// IncrementEngagement applies counter increments to content items in one
	// bulk write. Unknown content ids are skipped.
	IncrementEngagement(ctx context.Context, deltas []model.EngagementDelta) error

	// ApplyClassification sets category and tags on content items in one
	// bulk write. Unknown content ids are skipped.
	ApplyClassification(ctx context.Context, updates []model.Classification) error

	// GetUserProfile returns the stored interest profile, or ErrNotFound.
	GetUserProfile(ctx context.Context, userID string) (*model.UserProfile, error)

	// UpsertUserInterests replaces the user's interest profile.
	UpsertUserInterests(ctx context.Context, userID string, interests []model.InterestEntry) error

	// UpsertInteractions merges interaction deltas per (user, content) pair
	// in one bulk write: liked is overwritten when set, shares accumulate,
	// last-viewed advances.
	UpsertInteractions(ctx context.Context, userID string, deltas []model.InteractionDelta) error

	// GetInteractions returns the interaction records for (user, content ids).
	// Pairs without a record are omitted.
	GetInteractions(ctx context.Context, userID string, contentIDs []string) ([]model.InteractionRecord, error)

	// PutCategoryVector stores the embedding vector for a category or tag name.
	PutCategoryVector(ctx context.Context, name string, vector []float64) error

	// ListCategoryVectors returns all category/tag embedding vectors.
	ListCategoryVectors(ctx context.Context) (map[string][]float64, error)

	// Close releases the underlying storage.
	Close() error
}
