// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package metrics provides Prometheus instrumentation for the pipeline.
//
// Exposed metric families:
//   - events_consumed_total / events_published_total (labels: topic)
//   - cache_hits_total / cache_misses_total
//   - cache_flushes_total / cache_flush_errors_total
//   - classification_batches_total / classification_batch_failures_total
//   - vector_upserts_total
//   - recommendation_duration_seconds
//
// Metrics are served on the /metrics endpoint by cmd/server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total bus messages consumed, by topic.",
	}, []string{"topic"})

	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total bus messages published, by topic.",
	}, []string{"topic"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache-aside store hits.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache-aside store misses.",
	})

	cacheFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_flushes_total",
		Help: "Soft-expiry flushes persisted to the durable store.",
	})

	cacheFlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_flush_errors_total",
		Help: "Soft-expiry flushes that failed and were left for retry.",
	})

	classificationBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classification_batches_total",
		Help: "Classification sub-batches processed.",
	})

	classificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classification_batch_failures_total",
		Help: "Classification sub-batches that failed and were replaced with placeholders.",
	})

	vectorUpserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vector_upserts_total",
		Help: "Content vectors upserted into the vector index.",
	})

	recommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recommendation_duration_seconds",
		Help:    "Latency of Recommend calls.",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})
)

// RecordEventConsumed increments the consumed counter for a topic.
func RecordEventConsumed(topic string) { eventsConsumed.WithLabelValues(topic).Inc() }

// RecordEventPublished increments the published counter for a topic.
func RecordEventPublished(topic string) { eventsPublished.WithLabelValues(topic).Inc() }

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { cacheMisses.Inc() }

// RecordCacheFlush increments the soft-expiry flush counter.
func RecordCacheFlush() { cacheFlushes.Inc() }

// RecordCacheFlushError increments the flush error counter.
func RecordCacheFlushError() { cacheFlushErrors.Inc() }

// RecordClassificationBatch increments the processed sub-batch counter.
func RecordClassificationBatch() { classificationBatches.Inc() }

// RecordClassificationFailure increments the failed sub-batch counter.
func RecordClassificationFailure() { classificationFailures.Inc() }

// RecordVectorUpsert adds n to the vector upsert counter.
func RecordVectorUpsert(n int) { vectorUpserts.Add(float64(n)) }

// ObserveRecommendationDuration records the latency of one Recommend call.
func ObserveRecommendationDuration(seconds float64) { recommendationDuration.Observe(seconds) }

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler { return promhttp.Handler() }
