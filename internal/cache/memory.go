// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryKV is an in-memory implementation of KV for tests and development.
// TTL expiry is checked lazily on reads against an injectable clock, which
// lets tests advance time deterministically.
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string]memEntry
	zsets map[string]map[string]float64
	now   func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time // zero = no expiry
}

// NewMemoryKV creates an empty in-memory KV using the real clock.
func NewMemoryKV() *MemoryKV {
	return NewMemoryKVWithClock(time.Now)
}

// NewMemoryKVWithClock creates an in-memory KV with an injected clock.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]memEntry),
		zsets: make(map[string]map[string]float64),
		now:   now,
	}
}

// Get returns the value for key, or ErrCacheMiss.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.data, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key with the given TTL.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// IncrBy adds delta to the integer at key and refreshes the TTL.
func (m *MemoryKV) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if e, ok := m.data[key]; ok && (e.expires.IsZero() || m.now().Before(e.expires)) {
		current, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	current += delta

	e := memEntry{value: []byte(strconv.FormatInt(current, 10))}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return current, nil
}

// ZAdd adds member with score to the sorted set at key.
func (m *MemoryKV) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

// ZRangeByScore returns all members with score <= max in ascending order.
func (m *MemoryKV) ZRangeByScore(ctx context.Context, key string, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zset := m.zsets[key]
	if len(zset) == 0 {
		return nil, nil
	}

	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(zset))
	for member, score := range zset {
		if score <= max {
			pairs = append(pairs, pair{member: member, score: score})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	members := make([]string, len(pairs))
	for i, p := range pairs {
		members[i] = p.member
	}
	return members, nil
}

// ZRem removes members from the sorted set at key.
func (m *MemoryKV) ZRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zset := m.zsets[key]
	for _, member := range members {
		delete(zset, member)
	}
	return nil
}

// Close is a no-op for the in-memory KV.
func (m *MemoryKV) Close() error { return nil }

var _ KV = (*MemoryKV)(nil)
