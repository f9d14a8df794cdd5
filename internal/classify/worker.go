// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package classify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/metrics"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
)

// MaxTags caps the number of tags assigned per item.
const MaxTags = 3

// Publisher emits the downstream event after a batch is classified.
type Publisher interface {
	PublishJSON(topic string, payload event.Validatable) error
}

// WorkerConfig holds the buffering worker configuration.
type WorkerConfig struct {
	// BatchSize triggers a flush when the buffer reaches this length.
	// Default: 50
	BatchSize int `koanf:"batch_size" validate:"gt=0"`

	// FlushInterval bounds the latency of a partial buffer. Default: 10s
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`

	// SubBatchSize is the number of items per classification call.
	// Default: 4
	SubBatchSize int `koanf:"sub_batch_size" validate:"gt=0"`

	// PoolSize bounds concurrent classification calls. Default: 4
	PoolSize int `koanf:"pool_size" validate:"gt=0"`

	// PublishTopic is the topic the classified batch is emitted on.
	// Default: embedding-update
	PublishTopic string `koanf:"publish_topic" validate:"required"`
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:     50,
		FlushInterval: 10 * time.Second,
		SubBatchSize:  4,
		PoolSize:      4,
		PublishTopic:  "embedding-update",
	}
}

// Worker buffers newly ingested items and classifies them in batches.
//
// Add appends under a mutex and signals a flush when the buffer reaches the
// batch size; a periodic timer flushes regardless of size so low-volume
// periods still get bounded latency. Flush swaps the buffer out under the
// lock and classifies outside it, so classification never blocks Add.
type Worker struct {
	classifier Classifier
	durable    store.Store
	publisher  Publisher
	config     WorkerConfig
	logger     zerolog.Logger

	mu      sync.Mutex
	buffer  []event.ClassifyRequest
	flushCh chan struct{}
}

// NewWorker creates a buffering worker.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWorker(classifier Classifier, durable store.Store, publisher Publisher,
	cfg WorkerConfig, logger zerolog.Logger,
) *Worker {
	def := DefaultWorkerConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = def.SubBatchSize
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.PublishTopic == "" {
		cfg.PublishTopic = def.PublishTopic
	}
	return &Worker{
		classifier: classifier,
		durable:    durable,
		publisher:  publisher,
		config:     cfg,
		logger:     logger.With().Str("component", "classify-worker").Logger(),
		flushCh:    make(chan struct{}, 1),
	}
}

// Add appends an item to the buffer. Reaching the batch size signals an
// asynchronous flush; Add itself never does I/O.
func (w *Worker) Add(req event.ClassifyRequest) {
	w.mu.Lock()
	w.buffer = append(w.buffer, req)
	full := len(w.buffer) >= w.config.BatchSize
	w.mu.Unlock()

	if full {
		select {
		case w.flushCh <- struct{}{}:
		default:
		}
	}
}

// Serve runs the flush loop until ctx is canceled. A final flush drains
// whatever is still buffered on shutdown. Implements suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			w.Flush(ctx)
		case <-w.flushCh:
			w.Flush(ctx)
		}
	}
}

// Flush classifies everything currently buffered. The buffer is swapped out
// under the lock and the lock released before any I/O. Exported so tests and
// shutdown can drive flushes directly.
func (w *Worker) Flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	w.process(ctx, batch)
}

// process classifies a swapped-out batch, bulk-applies the results, and
// emits the downstream event for the successfully labeled items.
func (w *Worker) process(ctx context.Context, batch []event.ClassifyRequest) {
	labels := w.classifyAll(ctx, batch)

	updates := make([]model.Classification, 0, len(batch))
	refs := make([]event.ArticleRef, 0, len(batch))
	for i, req := range batch {
		if len(labels[i]) == 0 {
			w.logger.Warn().Str("content_id", req.ID).Msg("no labels assigned, skipping item")
			continue
		}
		category := labels[i][0]
		tags := labels[i][1:min(len(labels[i]), 1+MaxTags)]
		updates = append(updates, model.Classification{
			ContentID: req.ID,
			Category:  category,
			Tags:      tags,
		})
		refs = append(refs, event.ArticleRef{ID: req.ID, Category: category, Tags: tags})
	}
	if len(updates) == 0 {
		return
	}

	if err := w.durable.ApplyClassification(ctx, updates); err != nil {
		w.logger.Error().Err(err).Int("count", len(updates)).
			Msg("failed to apply classifications")
		return
	}

	payload := event.EmbeddingUpdate{FilteredArticles: refs}
	if err := w.publisher.PublishJSON(w.config.PublishTopic, &payload); err != nil {
		w.logger.Error().Err(err).Msg("failed to publish classified batch")
		return
	}
	w.logger.Info().Int("classified", len(updates)).Int("batch", len(batch)).
		Msg("classified content batch")
}

// classifyAll splits the batch into sub-batches and classifies them across
// the worker pool. A failed sub-batch is converted into empty-label
// placeholders for its items; other sub-batches are unaffected. The result
// always has one label slice per batch item, in batch order.
func (w *Worker) classifyAll(ctx context.Context, batch []event.ClassifyRequest) [][]string {
	labels := make([][]string, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.PoolSize)

	for start := 0; start < len(batch); start += w.config.SubBatchSize {
		end := min(start+w.config.SubBatchSize, len(batch))
		sub := batch[start:end]
		offset := start

		g.Go(func() error {
			texts := make([]string, len(sub))
			for i := range sub {
				texts[i] = sub[i].Text()
			}

			result, err := w.classifier.Classify(ctx, texts)
			if err != nil || len(result) != len(sub) {
				metrics.RecordClassificationFailure()
				w.logger.Error().Err(err).Int("size", len(sub)).
					Msg("classification sub-batch failed, inserting placeholders")
				for i := range sub {
					labels[offset+i] = nil
				}
				return nil
			}

			metrics.RecordClassificationBatch()
			for i := range sub {
				labels[offset+i] = result[i]
			}
			return nil
		})
	}

	// Goroutines never return errors; failures become placeholders.
	_ = g.Wait()
	return labels
}
