// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package recommend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/embedding"
	"github.com/jhasudarshan/recommendation-system/internal/interest"
	"github.com/jhasudarshan/recommendation-system/internal/store"
	"github.com/jhasudarshan/recommendation-system/internal/vector"
)

func TestHandlerServesRecommendations(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.engine, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/recommendations?user_id=u1&top_k=2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		UserID          string           `json:"user_id"`
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.UserID != "u1" || len(body.Recommendations) != 2 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	handler := NewHandler(f.engine, zerolog.Nop())

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"missing user_id", http.MethodGet, "/recommendations", http.StatusBadRequest},
		{"non-numeric top_k", http.MethodGet, "/recommendations?user_id=u1&top_k=x", http.StatusBadRequest},
		{"negative top_k", http.MethodGet, "/recommendations?user_id=u1&top_k=-1", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/recommendations?user_id=u1", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandlerUnavailableEngine(t *testing.T) {
	durable, err := store.NewBadgerStore(store.BadgerConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	cacheStore := cache.NewStore(cache.NewMemoryKV(), cache.StoreConfig{}, zerolog.Nop())
	table := embedding.NewTable(cacheStore, durable, embedding.TableConfig{}, zerolog.Nop())
	balancer := interest.NewBalancer(cacheStore, durable, interest.BalancerConfig{}, zerolog.Nop())
	engine := NewEngine(table, balancer, durable, vector.NewMemoryIndex(), "content",
		EngineConfig{}, zerolog.Nop())
	handler := NewHandler(engine, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/recommendations?user_id=u1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
