// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package config loads service configuration.
//
// Loading order: built-in defaults, then an optional YAML config file, then
// environment variables with the RECSYS_ prefix. Double underscores separate
// path segments: RECSYS_CACHE__REDIS_ADDR overrides cache.redis_addr,
// RECSYS_BUS__PUBLISHER__URL overrides bus.publisher.url. The loaded Config
// is immutable and safe for concurrent reads.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jhasudarshan/recommendation-system/internal/bus"
	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/classify"
	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/engagement"
	"github.com/jhasudarshan/recommendation-system/internal/eventprocessor"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/logging"
	"github.com/jhasudarshan/recommendation-system/internal/recommend"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/supervisor"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recsys/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "RECSYS_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them onto
// koanf paths.
const envPrefix = "RECSYS_"

// Config holds all service configuration.
type Config struct {
	Logging  logging.Config              `koanf:"logging"`
	Server   ServerConfig                `koanf:"server"`
	Bus      BusConfig                   `koanf:"bus"`
	Cache    CacheConfig                 `koanf:"cache"`
	Store    store.BadgerConfig          `koanf:"store"`
	Vector   VectorConfig                `koanf:"vector"`
	Topics   eventprocessor.TopicsConfig `koanf:"topics"`
	Scorer   engagement.ScorerConfig     `koanf:"scorer"`
	Table    embedding.TableConfig       `koanf:"table"`
	Interest interest.BalancerConfig     `koanf:"interest"`
	Engine   recommend.EngineConfig      `koanf:"engine"`
	Classify ClassifyConfig              `koanf:"classify"`
	Tree     supervisor.TreeConfig       `koanf:"tree"`
}

// ServerConfig holds the observability HTTP server configuration.
type ServerConfig struct {
	// MetricsAddr is the listen address for the /metrics endpoint.
	// Default: :9090
	MetricsAddr string `koanf:"metrics_addr" validate:"required"`
}

// BusConfig holds the message bus configuration.
type BusConfig struct {
	// InMemory swaps NATS for an in-process pub/sub. Development only.
	// Default: false
	InMemory bool `koanf:"in_memory"`

	Publisher  bus.PublisherConfig  `koanf:"publisher"`
	Subscriber bus.SubscriberConfig `koanf:"subscriber"`
	Router     bus.RouterConfig     `koanf:"router"`
}

// CacheConfig holds the cache backend configuration.
type CacheConfig struct {
	// RedisAddr is the Redis address. Empty selects the in-memory backend.
	// Default: localhost:6379
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword authenticates the Redis connection. Default: empty
	RedisPassword string `koanf:"redis_password"`

	// RedisDB selects the Redis logical database. Default: 0
	RedisDB int `koanf:"redis_db" validate:"gte=0"`

	// SoftExpiryMargin is subtracted from a key's TTL to schedule its
	// flush. Default: 2s
	SoftExpiryMargin time.Duration `koanf:"soft_expiry_margin" validate:"gt=0"`

	// PollInterval is the soft-expiry monitor tick. Default: 1s
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
}

// VectorConfig holds the vector index configuration.
type VectorConfig struct {
	// InMemory swaps Qdrant for the in-process index. Development only.
	// Default: false
	InMemory bool `koanf:"in_memory"`

	// Collection is the content vector collection name. Default: content
	Collection string `koanf:"collection" validate:"required"`

	Qdrant vector.QdrantConfig `koanf:"qdrant"`
}

// ClassifyConfig holds the classification configuration.
type ClassifyConfig struct {
	// Static selects the keyword classifier instead of the HTTP client.
	// Development only. Default: false
	Static bool `koanf:"static"`

	Client classify.HTTPClassifierConfig `koanf:"client"`
	Worker classify.WorkerConfig         `koanf:"worker"`
}

// defaultConfig returns the built-in defaults, overridden by file and env.
func defaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Server: ServerConfig{
			MetricsAddr: ":9090",
		},
		Bus: BusConfig{
			Publisher:  bus.DefaultPublisherConfig(),
			Subscriber: bus.DefaultSubscriberConfig(),
			Router:     bus.DefaultRouterConfig(),
		},
		Cache: CacheConfig{
			RedisAddr:        "localhost:6379",
			SoftExpiryMargin: cache.DefaultSoftExpiryMargin,
			PollInterval:     cache.DefaultPollInterval,
		},
		Store: store.DefaultBadgerConfig(),
		Vector: VectorConfig{
			Collection: "content",
			Qdrant:     vector.DefaultQdrantConfig(),
		},
		Topics:   eventprocessor.DefaultTopicsConfig(),
		Scorer:   engagement.DefaultScorerConfig(),
		Table:    embedding.DefaultTableConfig(),
		Interest: interest.DefaultBalancerConfig(),
		Engine:   recommend.DefaultEngineConfig(),
		Classify: ClassifyConfig{
			Client: classify.HTTPClassifierConfig{
				URL:               "http://localhost:8000/classify",
				Timeout:           10 * time.Second,
				RequestsPerSecond: 5,
			},
			Worker: classify.DefaultWorkerConfig(),
		},
		Tree: supervisor.DefaultTreeConfig(),
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// RECSYS_-prefixed environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration's field constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// envTransform maps RECSYS_BUS__PUBLISHER__URL to bus.publisher.url. Double
// underscores separate path segments; single underscores stay part of the
// key so fields like redis_addr survive the mapping.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
