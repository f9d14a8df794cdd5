// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package event defines the message-bus payload contracts.
//
// Five topics connect the pipeline (names are configuration, contracts here):
//
//	content-classify   -> ClassifyRequest    (classification buffering worker)
//	metadata-update    -> MetadataUpdate     (engagement scorer trigger path)
//	embedding-update   -> EmbeddingUpdate    (embedding composer)
//	interest-balance   -> InterestBalance    (interest balancer)
//	interaction-update -> InteractionUpdate  (interaction ingestion)
package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhasudarshan/recommendation-system/internal/model"
)

var validate = validator.New()

// ClassifyRequest is the payload of the content-classify topic: a newly
// ingested item awaiting category/tag assignment.
type ClassifyRequest struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"desc" validate:"required"`
	Body        string `json:"body,omitempty"`
}

// Validate checks required fields.
func (r *ClassifyRequest) Validate() error { return validate.Struct(r) }

// Text returns the concatenated text fed to the classifier.
func (r *ClassifyRequest) Text() string {
	return r.Title + ". " + r.Description
}

// ArticleMetadata is one item's counter increments inside a MetadataUpdate.
type ArticleMetadata struct {
	ID          string                   `json:"id" validate:"required"`
	Interaction model.EngagementCounters `json:"interaction"`
}

// MetadataUpdate is the payload of the metadata-update topic: a user's
// recent interactions rolled up as per-item counter increments.
type MetadataUpdate struct {
	UserID   string            `json:"user_id" validate:"required"`
	Articles []ArticleMetadata `json:"articles" validate:"required,min=1"`
}

// Validate checks required fields.
func (m *MetadataUpdate) Validate() error { return validate.Struct(m) }

// ArticleRef identifies a content item slated for (re)embedding along with
// the classification the composer should use.
type ArticleRef struct {
	ID       string   `json:"id" validate:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// EmbeddingUpdate is the payload of the embedding-update topic.
type EmbeddingUpdate struct {
	FilteredArticles []ArticleRef `json:"filtered_articles" validate:"required,min=1"`
}

// Validate checks required fields.
func (e *EmbeddingUpdate) Validate() error { return validate.Struct(e) }

// InterestBalance is the payload of the interest-balance topic: freshly
// observed topic weights to merge into a user's profile.
type InterestBalance struct {
	UserID          string                `json:"user_id" validate:"required"`
	UpdatedInterest []model.InterestEntry `json:"updatedInterest" validate:"required,min=1"`
}

// Validate checks required fields.
func (i *InterestBalance) Validate() error { return validate.Struct(i) }

// InteractionEvent is one user/content interaction inside an InteractionUpdate.
type InteractionEvent struct {
	ArticleID string     `json:"articleId" validate:"required"`
	Like      *bool      `json:"like,omitempty"`
	Share     int64      `json:"share,omitempty"`
	ViewedAt  *time.Time `json:"viewedAt,omitempty"`
}

// InteractionUpdate is the payload of the interaction-update topic.
// Email is informational only; UserID keys all derived state.
type InteractionUpdate struct {
	UserID       string             `json:"user_id" validate:"required"`
	Email        string             `json:"email,omitempty"`
	Interactions []InteractionEvent `json:"interactions" validate:"required,min=1"`
}

// Validate checks required fields.
func (i *InteractionUpdate) Validate() error { return validate.Struct(i) }
