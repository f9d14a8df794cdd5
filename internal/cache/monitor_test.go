// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingFlusher captures flush calls and optionally fails the first n.
type recordingFlusher struct {
	calls    []string
	payloads [][]byte
	failures int
}

func (f *recordingFlusher) flush(_ context.Context, key string, payload []byte) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("durable store down")
	}
	f.calls = append(f.calls, key)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestMonitorFlushesBeforeEviction(t *testing.T) {
	store, kv, clock := newTestStore(t)
	monitor := NewMonitor(store, 0, zerolog.Nop())
	flusher := &recordingFlusher{}
	monitor.RegisterFlusher("user:*:interest", flusher.flush)
	ctx := context.Background()

	payload := []byte(`[{"topic":"Tech","weight":1}]`)
	if err := store.Set(ctx, "user:a:interest", payload, 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Before the soft expiry nothing happens.
	monitor.Poll(ctx)
	if len(flusher.calls) != 0 {
		t.Fatalf("expected no flush before soft expiry, got %v", flusher.calls)
	}

	// Past the soft expiry (ttl - 2s margin) but before the hard TTL: the
	// payload must be flushed and the cache key removed.
	clock.Advance(9 * time.Second)
	monitor.Poll(ctx)

	if len(flusher.calls) != 1 || flusher.calls[0] != "user:a:interest" {
		t.Fatalf("expected one flush of user:a:interest, got %v", flusher.calls)
	}
	if string(flusher.payloads[0]) != string(payload) {
		t.Fatalf("flushed payload %q does not match cached %q", flusher.payloads[0], payload)
	}
	if _, err := store.Get(ctx, "user:a:interest"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache key removed after flush, got %v", err)
	}

	// The index entry is gone: another poll flushes nothing.
	monitor.Poll(ctx)
	if len(flusher.calls) != 1 {
		t.Fatalf("expected no repeat flush, got %d calls", len(flusher.calls))
	}
	_ = kv
}

func TestMonitorRetriesFailedFlush(t *testing.T) {
	store, _, clock := newTestStore(t)
	monitor := NewMonitor(store, 0, zerolog.Nop())
	flusher := &recordingFlusher{failures: 1}
	monitor.RegisterFlusher("user:*:interest", flusher.flush)
	ctx := context.Background()

	if err := store.Set(ctx, "user:a:interest", []byte(`[]`), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(9 * time.Second)

	// First poll fails; the index entry must survive for the next tick.
	monitor.Poll(ctx)
	if len(flusher.calls) != 0 {
		t.Fatalf("expected failed flush to record nothing, got %v", flusher.calls)
	}

	monitor.Poll(ctx)
	if len(flusher.calls) != 1 {
		t.Fatalf("expected retry to flush, got %d calls", len(flusher.calls))
	}
}

func TestMonitorUnmatchedKeyOnlyDropsIndexEntry(t *testing.T) {
	store, _, clock := newTestStore(t)
	monitor := NewMonitor(store, 0, zerolog.Nop())
	flusher := &recordingFlusher{}
	monitor.RegisterFlusher("user:*:interest", flusher.flush)
	ctx := context.Background()

	if err := store.Set(ctx, "session:xyz", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(9 * time.Second)
	monitor.Poll(ctx)

	if len(flusher.calls) != 0 {
		t.Fatalf("expected no flush for unmatched key, got %v", flusher.calls)
	}
	// The value itself survives until its own TTL.
	if _, err := store.Get(ctx, "session:xyz"); err != nil {
		t.Fatalf("expected unmatched key to survive, got %v", err)
	}
}

func TestMonitorValueAlreadyGone(t *testing.T) {
	store, kv, clock := newTestStore(t)
	monitor := NewMonitor(store, 0, zerolog.Nop())
	flusher := &recordingFlusher{}
	monitor.RegisterFlusher("user:*:interest", flusher.flush)
	ctx := context.Background()

	if err := store.Set(ctx, "user:a:interest", []byte(`[]`), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// The value lapses before the monitor gets to it.
	clock.Advance(11 * time.Second)
	monitor.Poll(ctx)

	if len(flusher.calls) != 0 {
		t.Fatalf("expected no flush for expired value, got %v", flusher.calls)
	}
	due, err := kv.ZRangeByScore(ctx, DefaultIndexKey, unixScore(clock.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("ZRangeByScore failed: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected index entry removed, got %v", due)
	}
}

func TestFlusherPatternMatching(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		key     string
		want    bool
	}{
		{"interest key", "user:*:interest", "user:a:interest", true},
		{"other suffix", "user:*:interest", "user:a:session", false},
		{"other prefix", "user:*:interest", "item:a:interest", false},
		{"empty wildcard segment", "user:*:interest", "user::interest", true},
		{"prefix only", "catvec:*", "catvec:all", true},
		{"too short", "user:*:interest", "user:interest", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(nil, 0, zerolog.Nop())
			m.RegisterFlusher(tt.pattern, func(context.Context, string, []byte) error { return nil })
			got := m.flusherFor(tt.key) != nil
			if got != tt.want {
				t.Fatalf("pattern %q key %q: expected %v, got %v", tt.pattern, tt.key, tt.want, got)
			}
		})
	}
}
