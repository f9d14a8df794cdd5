// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package eventprocessor wires the bus topics to the pipeline components.
//
// Each topic gets one long-running consumer handler; messages within a topic
// are processed sequentially, topics run concurrently. A payload that fails
// validation is logged and dropped rather than retried, since redelivery
// cannot fix a malformed message.
package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/classify"
	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/engagement"
	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/metrics"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
)

// TopicsConfig names the five pipeline topics.
type TopicsConfig struct {
	// ContentClassify carries newly ingested items. Default: content-classify
	ContentClassify string `koanf:"content_classify" validate:"required"`

	// MetadataUpdate carries per-user engagement rollups.
	// Default: metadata-update
	MetadataUpdate string `koanf:"metadata_update" validate:"required"`

	// EmbeddingUpdate carries items slated for (re)embedding.
	// Default: embedding-update
	EmbeddingUpdate string `koanf:"embedding_update" validate:"required"`

	// InterestBalance carries observed topic weights. Default: interest-balance
	InterestBalance string `koanf:"interest_balance" validate:"required"`

	// InteractionUpdate carries per-user interaction records.
	// Default: interaction-update
	InteractionUpdate string `koanf:"interaction_update" validate:"required"`
}

// DefaultTopicsConfig returns the default topic names.
func DefaultTopicsConfig() TopicsConfig {
	return TopicsConfig{
		ContentClassify:   "content-classify",
		MetadataUpdate:    "metadata-update",
		EmbeddingUpdate:   "embedding-update",
		InterestBalance:   "interest-balance",
		InteractionUpdate: "interaction-update",
	}
}

// Publisher emits downstream events from handlers.
type Publisher interface {
	PublishJSON(topic string, payload event.Validatable) error
}

// Handlers holds the pipeline components the topic handlers drive.
type Handlers struct {
	durable   store.Store
	scorer    *engagement.Scorer
	composer  *embedding.Composer
	balancer  *interest.Balancer
	worker    *classify.Worker
	publisher Publisher
	topics    TopicsConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewHandlers creates the topic handler set.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandlers(durable store.Store, scorer *engagement.Scorer, composer *embedding.Composer,
	balancer *interest.Balancer, worker *classify.Worker, publisher Publisher,
	topics TopicsConfig, logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		durable:   durable,
		scorer:    scorer,
		composer:  composer,
		balancer:  balancer,
		worker:    worker,
		publisher: publisher,
		topics:    topics,
		logger:    logger.With().Str("component", "eventprocessor").Logger(),
		now:       time.Now,
	}
}

// SetClock replaces the handlers' clock. Tests only.
func (h *Handlers) SetClock(now func() time.Time) { h.now = now }

// Register attaches one consumer handler per topic to the router.
func (h *Handlers) Register(router *message.Router, subscriber message.Subscriber) {
	add := func(name, topic string, fn func(context.Context, *message.Message) error) {
		router.AddConsumerHandler(name, topic, subscriber, func(msg *message.Message) error {
			metrics.RecordEventConsumed(topic)
			return fn(msg.Context(), msg)
		})
	}

	add("content-classify-handler", h.topics.ContentClassify, h.handleContentClassify)
	add("metadata-update-handler", h.topics.MetadataUpdate, h.handleMetadataUpdate)
	add("embedding-update-handler", h.topics.EmbeddingUpdate, h.handleEmbeddingUpdate)
	add("interest-balance-handler", h.topics.InterestBalance, h.handleInterestBalance)
	add("interaction-update-handler", h.topics.InteractionUpdate, h.handleInteractionUpdate)
}

// handleContentClassify creates the content document if it does not exist
// yet and buffers the item for batched classification.
func (h *Handlers) handleContentClassify(ctx context.Context, msg *message.Message) error {
	var payload event.ClassifyRequest
	if err := event.Unmarshal(msg.Payload, &payload); err != nil {
		h.dropMalformed(msg, h.topics.ContentClassify, err)
		return nil
	}

	_, err := h.durable.GetContent(ctx, payload.ID)
	if errors.Is(err, store.ErrNotFound) {
		item := &model.ContentItem{
			ID:          payload.ID,
			Title:       payload.Title,
			Description: payload.Description,
			CreatedAt:   h.now().UTC(),
		}
		if err := h.durable.PutContent(ctx, item); err != nil {
			return fmt.Errorf("create content %q: %w", payload.ID, err)
		}
	} else if err != nil {
		return fmt.Errorf("look up content %q: %w", payload.ID, err)
	}

	h.worker.Add(payload)
	return nil
}

// handleMetadataUpdate applies engagement increments, then fans out: records
// the user's interactions, re-embeds items whose score shifted enough, and
// feeds the user's interest balancer.
func (h *Handlers) handleMetadataUpdate(ctx context.Context, msg *message.Message) error {
	var payload event.MetadataUpdate
	if err := event.Unmarshal(msg.Payload, &payload); err != nil {
		h.dropMalformed(msg, h.topics.MetadataUpdate, err)
		return nil
	}

	deltas := make([]model.EngagementDelta, len(payload.Articles))
	ids := make([]string, len(payload.Articles))
	for i, a := range payload.Articles {
		deltas[i] = model.EngagementDelta{
			ContentID: a.ID,
			Likes:     a.Interaction.Likes,
			Shares:    a.Interaction.Shares,
			Clicks:    a.Interaction.Clicks,
		}
		ids[i] = a.ID
	}
	if err := h.durable.IncrementEngagement(ctx, deltas); err != nil {
		return fmt.Errorf("increment engagement: %w", err)
	}

	if err := h.publisher.PublishJSON(h.topics.InteractionUpdate, h.interactionUpdate(&payload)); err != nil {
		return fmt.Errorf("publish interaction update: %w", err)
	}

	items, err := h.durable.GetContents(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch touched content: %w", err)
	}

	if qualified := h.scorer.EvaluateBatch(items); len(qualified) > 0 {
		update := event.EmbeddingUpdate{FilteredArticles: qualified}
		if err := h.publisher.PublishJSON(h.topics.EmbeddingUpdate, &update); err != nil {
			return fmt.Errorf("publish embedding update: %w", err)
		}
	}

	if observations := interest.DeriveObservations(items); len(observations) > 0 {
		balance := event.InterestBalance{UserID: payload.UserID, UpdatedInterest: observations}
		if err := h.publisher.PublishJSON(h.topics.InterestBalance, &balance); err != nil {
			return fmt.Errorf("publish interest balance: %w", err)
		}
	}
	return nil
}

// interactionUpdate translates counter increments into the user's
// interaction event: any like marks the item liked, any click counts as a
// view at processing time.
func (h *Handlers) interactionUpdate(payload *event.MetadataUpdate) *event.InteractionUpdate {
	now := h.now().UTC()
	interactions := make([]event.InteractionEvent, len(payload.Articles))
	for i, a := range payload.Articles {
		ev := event.InteractionEvent{
			ArticleID: a.ID,
			Share:     a.Interaction.Shares,
		}
		if a.Interaction.Likes > 0 {
			liked := true
			ev.Like = &liked
		}
		if a.Interaction.Clicks > 0 {
			viewedAt := now
			ev.ViewedAt = &viewedAt
		}
		interactions[i] = ev
	}
	return &event.InteractionUpdate{UserID: payload.UserID, Interactions: interactions}
}

// handleEmbeddingUpdate composes and upserts vectors for the batch.
func (h *Handlers) handleEmbeddingUpdate(ctx context.Context, msg *message.Message) error {
	var payload event.EmbeddingUpdate
	if err := event.Unmarshal(msg.Payload, &payload); err != nil {
		h.dropMalformed(msg, h.topics.EmbeddingUpdate, err)
		return nil
	}
	return h.composer.ComposeBatch(ctx, payload.FilteredArticles)
}

// handleInterestBalance merges observed weights into the user's profile.
func (h *Handlers) handleInterestBalance(ctx context.Context, msg *message.Message) error {
	var payload event.InterestBalance
	if err := event.Unmarshal(msg.Payload, &payload); err != nil {
		h.dropMalformed(msg, h.topics.InterestBalance, err)
		return nil
	}
	_, err := h.balancer.Apply(ctx, payload.UserID, payload.UpdatedInterest)
	return err
}

// handleInteractionUpdate merges interaction records for the user.
func (h *Handlers) handleInteractionUpdate(ctx context.Context, msg *message.Message) error {
	var payload event.InteractionUpdate
	if err := event.Unmarshal(msg.Payload, &payload); err != nil {
		h.dropMalformed(msg, h.topics.InteractionUpdate, err)
		return nil
	}

	deltas := make([]model.InteractionDelta, len(payload.Interactions))
	for i, ev := range payload.Interactions {
		deltas[i] = model.InteractionDelta{
			ContentID:  ev.ArticleID,
			Like:       ev.Like,
			ShareDelta: ev.Share,
			ViewedAt:   ev.ViewedAt,
		}
	}
	return h.durable.UpsertInteractions(ctx, payload.UserID, deltas)
}

// dropMalformed acks an undecodable message after logging it. Retrying a
// payload that cannot validate would loop forever.
func (h *Handlers) dropMalformed(msg *message.Message, topic string, err error) {
	h.logger.Error().Err(err).
		Str("topic", topic).
		Str("message_id", msg.UUID).
		Msg("dropping malformed payload")
}
