// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package model defines the domain documents shared across the pipeline.
//
// All derived user state is keyed by an opaque user identifier. Email is
// carried as informational metadata only and never used as a storage key,
// since emails are mutable.
package model

import "time"

// EngagementCounters holds the raw interaction counts for a content item.
// Counters are monotonically non-decreasing; they are only ever incremented.
type EngagementCounters struct {
	Likes  int64 `json:"likes"`
	Shares int64 `json:"shares"`
	Clicks int64 `json:"clicks"`
}

// ContentItem is a single piece of ingested content. Category and tags are
// assigned once by classification; engagement counters are incremented by
// interaction ingestion. Items are never deleted.
type ContentItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url,omitempty"`
	ImageLink   string             `json:"image_link,omitempty"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags,omitempty"` // at most 3
	Engagement  EngagementCounters `json:"interactionMetrics"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// EngagementScore computes the linear engagement score for the item's
// current counters: 0.4*likes + 0.3*shares + 0.3*clicks.
func (c *ContentItem) EngagementScore() float64 {
	return Score(c.Engagement)
}

// Score computes the linear engagement score for a set of counters.
// The score is monotonic non-decreasing in each counter.
func Score(e EngagementCounters) float64 {
	return 0.4*float64(e.Likes) + 0.3*float64(e.Shares) + 0.3*float64(e.Clicks)
}

// InterestEntry is a single weighted topic in a user's interest profile.
type InterestEntry struct {
	Topic  string  `json:"topic"`
	Weight float64 `json:"weight"`
}

// UserProfile is the durable record of a user's interest profile.
// Weights sum to 1 immediately after balancing, but intermediate
// states are not required to be normalized.
type UserProfile struct {
	UserID    string          `json:"user_id"`
	Interests []InterestEntry `json:"interests"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

// InteractionRecord tracks a single user's interaction state with a single
// content item. Upserted per (user, content) pair; consumed only by
// recommendation filtering.
type InteractionRecord struct {
	UserID       string     `json:"user_id"`
	ContentID    string     `json:"content_id"`
	Liked        bool       `json:"liked"`
	Shares       int64      `json:"shares"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
}

// InteractionDelta is a bulk-upsert mutation for one (user, content)
// interaction record. Like is applied only when non-nil, ShareDelta
// accumulates, and ViewedAt advances the last-viewed timestamp.
type InteractionDelta struct {
	ContentID  string
	Like       *bool
	ShareDelta int64
	ViewedAt   *time.Time
}

// EngagementDelta is a bulk-update increment for one content item's counters.
type EngagementDelta struct {
	ContentID string
	Likes     int64
	Shares    int64
	Clicks    int64
}

// Classification is the category/tag assignment produced for one item.
type Classification struct {
	ContentID string
	Category  string
	Tags      []string
}
