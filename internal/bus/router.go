// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// RouterConfig holds the Watermill router configuration.
type RouterConfig struct {
	// CloseTimeout is how long handlers get to finish on shutdown.
	// Default: 30s
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// RetryMaxRetries bounds retries for a failing handler. Default: 5
	RetryMaxRetries int `koanf:"retry_max_retries"`

	// RetryInitialInterval is the first retry backoff. Default: 1s
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`

	// RetryMaxInterval caps the retry backoff. Default: 1m
	RetryMaxInterval time.Duration `koanf:"retry_max_interval"`
}

// DefaultRouterConfig returns the default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
	}
}

// NewRouter creates a Watermill router with panic recovery and exponential
// backoff retry. Handler failures are retried with backoff; a panic inside a
// handler becomes an error instead of killing the process.
func NewRouter(cfg RouterConfig, logger watermill.LoggerAdapter) (*message.Router, error) {
	def := DefaultRouterConfig()
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}
	if cfg.RetryMaxRetries <= 0 {
		cfg.RetryMaxRetries = def.RetryMaxRetries
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = def.RetryMaxInterval
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.CorrelationID)
	router.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	return router, nil
}

// RouterService adapts a Watermill router to suture.Service.
type RouterService struct {
	Router *message.Router
}

// Serve runs the router until ctx is canceled.
func (s *RouterService) Serve(ctx context.Context) error {
	return s.Router.Run(ctx)
}

// NewInMemoryPubSub creates an in-process pub/sub used by tests and by
// development mode when no broker is configured. The returned value is both
// a message.Publisher and a message.Subscriber.
func NewInMemoryPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)
}
