// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Command server runs the recommendation pipeline: bus consumers for the
// five topics, the classification worker, the cache soft-expiry monitor, and
// the metrics endpoint, all under one supervisor tree.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/jhasudarshan/recommendation-system/internal/bus"
	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/classify"
	"github.com/jhasudarshan/recommendation-system/internal/config"
	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/engagement"
	"github.com/jhasudarshan/recommendation-system/internal/eventprocessor"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/logging"
	"github.com/jhasudarshan/recommendation-system/internal/metrics"
	"github.com/jhasudarshan/recommendation-system/internal/recommend"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/supervisor"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(cfg.Logging)
	logger := logging.Logger()
	logger.Info().Msg("starting recommendation system")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable document store.
	durable, err := store.NewBadgerStore(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open durable store: %w", err)
	}
	defer durable.Close()

	// Cache backend and cache-aside store.
	var kv cache.KV
	if cfg.Cache.RedisAddr == "" {
		logger.Warn().Msg("no redis address configured, using in-memory cache")
		kv = cache.NewMemoryKV()
	} else {
		kv, err = cache.NewRedisKV(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}
	defer kv.Close()

	cacheStore := cache.NewStore(kv, cache.StoreConfig{
		SoftExpiryMargin: cfg.Cache.SoftExpiryMargin,
	}, logger)
	monitor := cache.NewMonitor(cacheStore, cfg.Cache.PollInterval, logger)

	// Vector index.
	var index vector.Index
	if cfg.Vector.InMemory {
		logger.Warn().Msg("using in-memory vector index")
		index = vector.NewMemoryIndex()
	} else {
		qdrantIndex, err := vector.NewQdrantIndex(cfg.Vector.Qdrant, logger)
		if err != nil {
			return fmt.Errorf("connect qdrant: %w", err)
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = qdrantIndex.EnsureCollection(ensureCtx, cfg.Vector.Collection)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure vector collection: %w", err)
		}
		index = qdrantIndex
	}
	defer index.Close()

	// Category embedding table.
	table := embedding.NewTable(cacheStore, durable, cfg.Table, logger)
	if err := table.Load(ctx); err != nil {
		logger.Error().Err(err).Msg("embedding table load failed, starting with empty table")
	}

	// Message bus.
	wmLogger := bus.NewLoggerAdapter(logger)
	var (
		publisher  *bus.Publisher
		subscriber message.Subscriber
	)
	if cfg.Bus.InMemory {
		logger.Warn().Msg("using in-memory message bus")
		pubsub := bus.NewInMemoryPubSub(wmLogger)
		publisher = bus.NewPublisher(pubsub)
		subscriber = pubsub
	} else {
		publisher, err = bus.NewNATSPublisher(cfg.Bus.Publisher, wmLogger)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		subscriber, err = bus.NewNATSSubscriber(cfg.Bus.Subscriber, wmLogger)
		if err != nil {
			return fmt.Errorf("create subscriber: %w", err)
		}
	}
	defer publisher.Close()
	defer subscriber.Close()

	// Pipeline components.
	scorer := engagement.NewScorer(engagement.NewSnapshotMap(), cfg.Scorer, logger)
	composer := embedding.NewComposer(table, durable, index, cfg.Vector.Collection, logger)
	balancer := interest.NewBalancer(cacheStore, durable, cfg.Interest, logger)

	var classifier classify.Classifier
	if cfg.Classify.Static {
		logger.Warn().Msg("using static keyword classifier")
		classifier = &classify.StaticClassifier{}
	} else {
		classifier = classify.NewHTTPClassifier(cfg.Classify.Client)
	}
	worker := classify.NewWorker(classifier, durable, publisher, cfg.Classify.Worker, logger)

	// Interest profiles are flushed to the durable store before eviction.
	monitor.RegisterFlusher(interest.ProfileKeyPattern, balancer.FlushProfile)

	// Bus router and topic handlers.
	router, err := bus.NewRouter(cfg.Bus.Router, wmLogger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	handlers := eventprocessor.NewHandlers(durable, scorer, composer, balancer, worker,
		publisher, cfg.Topics, logger)
	handlers.Register(router, subscriber)

	// Supervisor tree.
	slogger := slog.New(logging.NewSlogHandlerWithLogger(logger))
	tree := supervisor.NewTree(slogger, cfg.Tree)
	tree.AddDataService(monitor)
	tree.AddPipelineService(&bus.RouterService{Router: router})
	tree.AddPipelineService(worker)

	engine := recommend.NewEngine(table, balancer, durable, index,
		cfg.Vector.Collection, cfg.Engine, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/recommendations", recommend.NewHandler(engine, logger))
	tree.AddObservabilityService(&supervisor.HTTPService{
		Server: &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	})

	logger.Info().
		Str("metrics_addr", cfg.Server.MetricsAddr).
		Str("collection", cfg.Vector.Collection).
		Msg("pipeline running")

	err = tree.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
