// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
)

// scriptedClassifier labels each text from a fixed map and fails whole
// sub-batches containing a poisoned text.
type scriptedClassifier struct {
	mu     sync.Mutex
	labels map[string][]string
	poison string
	calls  int
}

func (c *scriptedClassifier) Classify(_ context.Context, texts []string) ([][]string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	results := make([][]string, len(texts))
	for i, text := range texts {
		if c.poison != "" && strings.Contains(text, c.poison) {
			return nil, errors.New("inference backend unavailable")
		}
		for key, labels := range c.labels {
			if strings.Contains(text, key) {
				results[i] = labels
			}
		}
	}
	return results, nil
}

// recordingPublisher captures published payloads.
type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []event.Validatable
}

func (p *recordingPublisher) PublishJSON(topic string, payload event.Validatable) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func newWorkerFixture(t *testing.T, classifier Classifier, cfg WorkerConfig) (*Worker, store.Store, *recordingPublisher) {
	t.Helper()
	durable, err := store.NewBadgerStore(store.BadgerConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	publisher := &recordingPublisher{}
	worker := NewWorker(classifier, durable, publisher, cfg, zerolog.Nop())
	return worker, durable, publisher
}

func putItems(t *testing.T, durable store.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := durable.PutContent(context.Background(), &model.ContentItem{ID: id, Title: id}); err != nil {
			t.Fatalf("PutContent %s: %v", id, err)
		}
	}
}

func TestWorkerFlushClassifiesAndPublishes(t *testing.T) {
	classifier := &scriptedClassifier{labels: map[string][]string{
		"gophers": {"Tech", "go", "programming", "backend", "extra"},
		"museum":  {"Art"},
	}}
	worker, durable, publisher := newWorkerFixture(t, classifier, WorkerConfig{})
	ctx := context.Background()
	putItems(t, durable, "c1", "c2")

	worker.Add(event.ClassifyRequest{ID: "c1", Title: "All about gophers", Description: "d"})
	worker.Add(event.ClassifyRequest{ID: "c2", Title: "A museum visit", Description: "d"})
	worker.Flush(ctx)

	// Category is the top label, tags the next three at most.
	got, err := durable.GetContent(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.Category != "Tech" {
		t.Fatalf("expected category Tech, got %q", got.Category)
	}
	if len(got.Tags) != 3 || got.Tags[0] != "go" || got.Tags[2] != "backend" {
		t.Fatalf("expected first three tags, got %v", got.Tags)
	}

	if len(publisher.topics) != 1 || publisher.topics[0] != "embedding-update" {
		t.Fatalf("expected one embedding-update publish, got %v", publisher.topics)
	}
	update, ok := publisher.payloads[0].(*event.EmbeddingUpdate)
	if !ok {
		t.Fatalf("unexpected payload type %T", publisher.payloads[0])
	}
	if len(update.FilteredArticles) != 2 {
		t.Fatalf("expected 2 classified tuples, got %d", len(update.FilteredArticles))
	}
}

func TestWorkerFailedSubBatchBecomesPlaceholders(t *testing.T) {
	// Sub-batch size 1: three sub-batches, the middle one fails.
	classifier := &scriptedClassifier{
		labels: map[string][]string{
			"first": {"Tech"},
			"third": {"Art"},
		},
		poison: "second",
	}
	worker, durable, publisher := newWorkerFixture(t, classifier, WorkerConfig{SubBatchSize: 1})
	ctx := context.Background()
	putItems(t, durable, "c1", "c2", "c3")

	worker.Add(event.ClassifyRequest{ID: "c1", Title: "first", Description: "d"})
	worker.Add(event.ClassifyRequest{ID: "c2", Title: "second", Description: "d"})
	worker.Add(event.ClassifyRequest{ID: "c3", Title: "third", Description: "d"})
	worker.Flush(ctx)

	// The failed sub-batch must not abort the others.
	c1, err := durable.GetContent(ctx, "c1")
	if err != nil {
		t.Fatalf("GetContent c1: %v", err)
	}
	c3, err := durable.GetContent(ctx, "c3")
	if err != nil {
		t.Fatalf("GetContent c3: %v", err)
	}
	if c1.Category != "Tech" || c3.Category != "Art" {
		t.Fatalf("expected surviving sub-batches applied, got %q %q", c1.Category, c3.Category)
	}

	// The poisoned item stays unclassified and out of the published batch.
	c2, err := durable.GetContent(ctx, "c2")
	if err != nil {
		t.Fatalf("GetContent c2: %v", err)
	}
	if c2.Category != "" {
		t.Fatalf("expected failed item unclassified, got %q", c2.Category)
	}
	update := publisher.payloads[0].(*event.EmbeddingUpdate)
	if len(update.FilteredArticles) != 2 {
		t.Fatalf("expected 2 tuples published, got %d", len(update.FilteredArticles))
	}
	for _, ref := range update.FilteredArticles {
		if ref.ID == "c2" {
			t.Fatal("failed item must not be published")
		}
	}
}

func TestWorkerZeroLabelItemsSkipped(t *testing.T) {
	classifier := &scriptedClassifier{labels: map[string][]string{}}
	worker, _, publisher := newWorkerFixture(t, classifier, WorkerConfig{})

	worker.Add(event.ClassifyRequest{ID: "c1", Title: "unlabelable", Description: "d"})
	worker.Flush(context.Background())

	if len(publisher.topics) != 0 {
		t.Fatalf("expected no publish for all-skipped batch, got %v", publisher.topics)
	}
}

func TestWorkerFlushEmptyBufferIsNoop(t *testing.T) {
	classifier := &scriptedClassifier{}
	worker, _, publisher := newWorkerFixture(t, classifier, WorkerConfig{})

	worker.Flush(context.Background())

	if classifier.calls != 0 || len(publisher.topics) != 0 {
		t.Fatal("expected empty flush to do nothing")
	}
}

func TestWorkerAddSignalsFlushAtBatchSize(t *testing.T) {
	classifier := &scriptedClassifier{labels: map[string][]string{"x": {"Tech"}}}
	worker, _, _ := newWorkerFixture(t, classifier, WorkerConfig{BatchSize: 2})

	worker.Add(event.ClassifyRequest{ID: "c1", Title: "x", Description: "d"})
	select {
	case <-worker.flushCh:
		t.Fatal("flush signaled below batch size")
	default:
	}

	worker.Add(event.ClassifyRequest{ID: "c2", Title: "x", Description: "d"})
	select {
	case <-worker.flushCh:
	default:
		t.Fatal("expected flush signal at batch size")
	}
}

func TestStaticClassifier(t *testing.T) {
	c := &StaticClassifier{Vocabulary: map[string]string{
		"golang": "Tech",
		"paint":  "Art",
	}}

	results, err := c.Classify(context.Background(), []string{
		"Golang and painting",
		"nothing relevant",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0]) != 2 {
		t.Fatalf("expected both labels for first text, got %v", results[0])
	}
	if len(results[1]) != 0 {
		t.Fatalf("expected no labels for second text, got %v", results[1])
	}
}
