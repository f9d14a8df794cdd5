// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jhasudarshan/recommendation-system/internal/event"
	"github.com/jhasudarshan/recommendation-system/internal/metrics"
)

// PublisherConfig holds the NATS publisher configuration.
type PublisherConfig struct {
	// URL is the NATS server URL. Default: nats://localhost:4222
	URL string `koanf:"url" validate:"required"`

	// MaxReconnects bounds reconnection attempts. Default: 10
	MaxReconnects int `koanf:"max_reconnects"`

	// ReconnectWait is the delay between reconnection attempts. Default: 2s
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// TrackMsgID enables JetStream deduplication on the message id header.
	// Default: true
	TrackMsgID bool `koanf:"track_msg_id"`
}

// DefaultPublisherConfig returns the default publisher configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           "nats://localhost:4222",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		TrackMsgID:    true,
	}
}

// Publisher wraps a Watermill publisher with circuit breaker protection.
// A tripped breaker fails publishes fast instead of piling up on a broker
// that is already refusing writes.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	mu        sync.RWMutex
	closed    bool
}

// NewNATSPublisher creates a JetStream publisher with reconnection handling.
func NewNATSPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    cfg.TrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisher(pub), nil
}

// NewPublisher wraps an existing Watermill publisher with the default
// circuit breaker. Used directly by tests with an in-memory pub/sub.
func NewPublisher(pub message.Publisher) *Publisher {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "bus-publisher",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Publisher{publisher: pub, breaker: breaker}
}

// Publish sends a message to the topic through the circuit breaker. The
// message UUID doubles as the broker deduplication id when not already set.
func (p *Publisher) Publish(topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	return nil
}

// PublishJSON serializes a validated payload and publishes it.
func (p *Publisher) PublishJSON(topic string, payload event.Validatable) error {
	data, err := event.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serialize payload for %q: %w", topic, err)
	}
	return p.Publish(topic, message.NewMessage(uuid.NewString(), data))
}

// Close shuts down the underlying publisher. Subsequent publishes fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
