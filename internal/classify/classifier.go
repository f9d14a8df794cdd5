// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package classify assigns categories and tags to newly ingested content.
//
// Classification runs against an external labeling service. Incoming items
// are buffered and flushed in batches by the Worker, which splits each batch
// across a bounded worker pool so one slow or failing sub-batch never stalls
// or aborts the others.
package classify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// Classifier assigns descending-confidence labels to each input text.
// The result has one label slice per input, in input order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([][]string, error)
}

// HTTPClassifierConfig holds the external classifier client configuration.
type HTTPClassifierConfig struct {
	// URL is the labeling service endpoint.
	URL string `koanf:"url" validate:"required,url"`

	// Timeout bounds a single classification request. Default: 10s
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond rate-limits calls to the service. Default: 5
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
}

// DefaultHTTPClassifierConfig returns the default client configuration.
func DefaultHTTPClassifierConfig() HTTPClassifierConfig {
	return HTTPClassifierConfig{
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
	}
}

// HTTPClassifier calls an external labeling service over HTTP. Requests are
// rate-limited and bounded by the configured timeout.
type HTTPClassifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClassifier creates a classifier client for the given endpoint.
func NewHTTPClassifier(cfg HTTPClassifierConfig) *HTTPClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPClassifierConfig().Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultHTTPClassifierConfig().RequestsPerSecond
	}
	return &HTTPClassifier{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type classifyRequest struct {
	Texts []string `json:"texts"`
}

type classifyResponse struct {
	Labels [][]string `json:"labels"`
}

// Classify sends the texts to the labeling service and returns one label
// slice per text.
func (c *HTTPClassifier) Classify(ctx context.Context, texts []string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("classifier rate limit wait: %w", err)
	}

	body, err := json.Marshal(classifyRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify request returned status %d", resp.StatusCode)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode classify response: %w", err)
	}
	if len(decoded.Labels) != len(texts) {
		return nil, fmt.Errorf("classify response has %d label sets for %d texts",
			len(decoded.Labels), len(texts))
	}
	return decoded.Labels, nil
}

// StaticClassifier labels texts by keyword matching against a fixed label
// vocabulary. Used in development and tests where no labeling service runs.
type StaticClassifier struct {
	// Vocabulary maps a lowercase keyword to the label it votes for.
	Vocabulary map[string]string
}

// Classify returns, per text, the labels whose keywords occur in the text.
// Texts matching nothing get an empty label slice.
func (s *StaticClassifier) Classify(ctx context.Context, texts []string) ([][]string, error) {
	results := make([][]string, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		var labels []string
		for keyword, label := range s.Vocabulary {
			if strings.Contains(lower, keyword) {
				labels = append(labels, label)
			}
		}
		sort.Strings(labels)
		results[i] = labels
	}
	return results, nil
}

var (
	_ Classifier = (*HTTPClassifier)(nil)
	_ Classifier = (*StaticClassifier)(nil)
)
