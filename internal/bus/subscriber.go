// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package bus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// SubscriberConfig holds the NATS subscriber configuration.
type SubscriberConfig struct {
	// URL is the NATS server URL. Default: nats://localhost:4222
	URL string `koanf:"url" validate:"required"`

	// QueueGroup load-balances consumption across service instances.
	// Default: recsys
	QueueGroup string `koanf:"queue_group"`

	// DurableName is the JetStream durable consumer prefix. Default: recsys
	DurableName string `koanf:"durable_name"`

	// MaxReconnects bounds reconnection attempts. Default: 10
	MaxReconnects int `koanf:"max_reconnects"`

	// ReconnectWait is the delay between reconnection attempts. Default: 2s
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// AckWaitTimeout is how long JetStream waits for an ack before
	// redelivering. Default: 30s
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`

	// MaxDeliver bounds redeliveries of an unacked message. Default: 5
	MaxDeliver int `koanf:"max_deliver"`
}

// DefaultSubscriberConfig returns the default subscriber configuration.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		URL:            "nats://localhost:4222",
		QueueGroup:     "recsys",
		DurableName:    "recsys",
		MaxReconnects:  10,
		ReconnectWait:  2 * time.Second,
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
	}
}

// NewNATSSubscriber creates a durable JetStream subscriber. The queue group
// spreads topic consumption across instances while each message is still
// processed once.
func NewNATSSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("subscriber reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision:    true,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	return sub, nil
}
