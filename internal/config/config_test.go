// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.MetricsAddr != ":9090" {
		t.Fatalf("expected default metrics addr, got %q", cfg.Server.MetricsAddr)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Fatalf("expected default redis addr, got %q", cfg.Cache.RedisAddr)
	}
	if cfg.Vector.Collection != "content" {
		t.Fatalf("expected default collection, got %q", cfg.Vector.Collection)
	}
	if cfg.Classify.Worker.BatchSize != 50 || cfg.Classify.Worker.FlushInterval != 10*time.Second {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Classify.Worker)
	}
	if cfg.Topics.ContentClassify != "content-classify" {
		t.Fatalf("expected default classify topic, got %q", cfg.Topics.ContentClassify)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RECSYS_SERVER__METRICS_ADDR", ":9191")
	t.Setenv("RECSYS_BUS__PUBLISHER__URL", "nats://bus:4222")
	t.Setenv("RECSYS_CACHE__REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.MetricsAddr != ":9191" {
		t.Fatalf("expected env metrics addr, got %q", cfg.Server.MetricsAddr)
	}
	if cfg.Bus.Publisher.URL != "nats://bus:4222" {
		t.Fatalf("expected env publisher url, got %q", cfg.Bus.Publisher.URL)
	}
	if cfg.Cache.RedisAddr != "redis:6379" {
		t.Fatalf("expected env redis addr, got %q", cfg.Cache.RedisAddr)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  metrics_addr: \":7070\"\nclassify:\n  static: true\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.MetricsAddr != ":7070" {
		t.Fatalf("expected file metrics addr, got %q", cfg.Server.MetricsAddr)
	}
	if !cfg.Classify.Static {
		t.Fatal("expected static classifier enabled")
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  metrics_addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("RECSYS_SERVER__METRICS_ADDR", ":9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.MetricsAddr != ":9191" {
		t.Fatalf("expected env to win over file, got %q", cfg.Server.MetricsAddr)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RECSYS_CACHE__POLL_INTERVAL", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for zero poll interval")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RECSYS_SERVER__METRICS_ADDR", "server.metrics_addr"},
		{"RECSYS_BUS__PUBLISHER__URL", "bus.publisher.url"},
		{"RECSYS_CACHE__REDIS_ADDR", "cache.redis_addr"},
		{"RECSYS_CLASSIFY__WORKER__BATCH_SIZE", "classify.worker.batch_size"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Fatalf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
