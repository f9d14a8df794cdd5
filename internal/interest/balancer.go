// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

// Package interest maintains per-user interest profiles.
//
// Balancing merges newly observed topic weights into the stored profile at a
// fixed 30% rate, so repeated calls converge the profile toward recent
// behavior without ever fully overwriting history. Profiles live in the
// cache-aside store under a bounded TTL; the soft-expiry flush persists them
// to the durable store before the TTL lapses.
package interest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/cache"
	"github.com/jhasudarshan/recommendation-system/internal/model"
	"github.com/jhasudarshan/recommendation-system/internal/store"
)

// Merge coefficients: previous profile keeps 70%, new observations get 30%.
const (
	previousWeight = 0.7
	observedWeight = 0.3
)

// Observation weights for deriving topic observations from engaged content.
const (
	categoryObservationWeight = 0.6
	tagObservationWeight      = 0.4
)

// ProfileKeyPattern is the cache key pattern for interest profiles, with the
// user id in place of the wildcard. Used to register the soft-expiry flusher.
const ProfileKeyPattern = "user:*:interest"

// ProfileKey returns the cache key for a user's interest profile.
func ProfileKey(userID string) string {
	return fmt.Sprintf("user:%s:interest", userID)
}

// UserIDFromKey extracts the user id from a profile cache key.
func UserIDFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "user:")
	if !ok {
		return "", false
	}
	userID, ok := strings.CutSuffix(rest, ":interest")
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// BalancerConfig holds the interest balancer configuration.
type BalancerConfig struct {
	// ProfileTTL is the cache TTL for balanced profiles. The soft-expiry
	// monitor flushes the profile to the durable store before it lapses.
	// Default: 10m
	ProfileTTL time.Duration `koanf:"profile_ttl" validate:"gt=0"`
}

// DefaultBalancerConfig returns the default balancer configuration.
func DefaultBalancerConfig() BalancerConfig {
	return BalancerConfig{ProfileTTL: 10 * time.Minute}
}

// Balancer merges observed interests into user profiles.
type Balancer struct {
	cache   *cache.Store
	durable store.Store
	config  BalancerConfig
	logger  zerolog.Logger
}

// NewBalancer creates a balancer over the given cache and durable store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBalancer(cacheStore *cache.Store, durable store.Store, cfg BalancerConfig, logger zerolog.Logger) *Balancer {
	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = DefaultBalancerConfig().ProfileTTL
	}
	return &Balancer{
		cache:   cacheStore,
		durable: durable,
		config:  cfg,
		logger:  logger.With().Str("component", "interest-balancer").Logger(),
	}
}

// Apply merges the observations into the user's profile and writes the
// result back into the cache. Topics absent from one side contribute 0 from
// that side. The merged profile is normalized to sum to 1 unless the sum is
// 0. Returns the merged entries.
func (b *Balancer) Apply(ctx context.Context, userID string, observations []model.InterestEntry) ([]model.InterestEntry, error) {
	previous, err := b.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := Merge(previous, observations)

	payload, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interest profile: %w", err)
	}
	if err := b.cache.Set(ctx, ProfileKey(userID), payload, b.config.ProfileTTL); err != nil {
		return nil, fmt.Errorf("failed to cache interest profile: %w", err)
	}

	b.logger.Debug().
		Str("user_id", userID).
		Int("topics", len(merged)).
		Msg("balanced interest profile")
	return merged, nil
}

// Load returns the user's current interest profile, preferring the cache and
// falling back to the durable store. A user with no profile yields an empty
// slice, not an error.
func (b *Balancer) Load(ctx context.Context, userID string) ([]model.InterestEntry, error) {
	return b.load(ctx, userID)
}

func (b *Balancer) load(ctx context.Context, userID string) ([]model.InterestEntry, error) {
	payload, err := b.cache.Get(ctx, ProfileKey(userID))
	if err == nil {
		var entries []model.InterestEntry
		if err := json.Unmarshal(payload, &entries); err == nil {
			return entries, nil
		}
		b.logger.Warn().Str("user_id", userID).Msg("cached interest profile is corrupt, falling back")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("interest cache read failed, falling back")
	}

	profile, err := b.durable.GetUserProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	return profile.Interests, nil
}

// FlushProfile is the soft-expiry FlushFunc for interest profile keys. It
// persists the cached profile to the durable store before eviction.
func (b *Balancer) FlushProfile(ctx context.Context, key string, payload []byte) error {
	userID, ok := UserIDFromKey(key)
	if !ok {
		return fmt.Errorf("not an interest profile key: %q", key)
	}
	var entries []model.InterestEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return fmt.Errorf("failed to decode interest profile %q: %w", key, err)
	}
	return b.durable.UpsertUserInterests(ctx, userID, entries)
}

// Merge combines a previous profile with new observations:
//
//	merged[topic] = 0.7*previous[topic] + 0.3*observed[topic]
//
// over the union of topics, then normalizes so weights sum to 1 (skipped
// when the sum is 0). Entries are ordered by weight descending, topic
// ascending on ties, so the result is deterministic.
func Merge(previous, observed []model.InterestEntry) []model.InterestEntry {
	weights := make(map[string]float64, len(previous)+len(observed))
	for _, e := range previous {
		weights[e.Topic] += previousWeight * e.Weight
	}
	for _, e := range observed {
		weights[e.Topic] += observedWeight * e.Weight
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}

	merged := make([]model.InterestEntry, 0, len(weights))
	for topic, w := range weights {
		if sum != 0 {
			w /= sum
		}
		merged = append(merged, model.InterestEntry{Topic: topic, Weight: w})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Weight != merged[j].Weight {
			return merged[i].Weight > merged[j].Weight
		}
		return merged[i].Topic < merged[j].Topic
	})
	return merged
}

// DeriveObservations turns a set of engaged content items into topic
// observations. Category occurrences carry weight 0.6 and tag occurrences
// 0.4; the weight per topic is the average over that topic's occurrences.
func DeriveObservations(items []*model.ContentItem) []model.InterestEntry {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	observe := func(topic string, weight float64) {
		if topic == "" {
			return
		}
		sums[topic] += weight
		counts[topic]++
	}
	for _, item := range items {
		observe(item.Category, categoryObservationWeight)
		for _, tag := range item.Tags {
			observe(tag, tagObservationWeight)
		}
	}

	entries := make([]model.InterestEntry, 0, len(sums))
	for topic, sum := range sums {
		entries = append(entries, model.InterestEntry{
			Topic:  topic,
			Weight: sum / float64(counts[topic]),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].Topic < entries[j].Topic
	})
	return entries
}
