// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/model"
)

// Key prefixes for the document collections.
const (
	contentPrefix     = "content:"
	userPrefix        = "user:"
	interactionPrefix = "interaction:"
	categoryPrefix    = "catvec:"
)

// BadgerStore is a Badger-backed implementation of Store. Each document is a
// JSON value under a collection key prefix; bulk mutations run inside a
// single transaction so readers never observe a half-applied batch.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time
}

// BadgerConfig holds the durable store configuration.
type BadgerConfig struct {
	// Path is the on-disk database directory. Ignored when InMemory is set.
	// Default: ./data/store
	Path string `koanf:"path" validate:"required_without=InMemory"`

	// InMemory keeps all data in RAM. Used by tests and development.
	// Default: false
	InMemory bool `koanf:"in_memory"`
}

// DefaultBadgerConfig returns the default durable store configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		Path: "./data/store",
	}
}

// NewBadgerStore opens the Badger database described by cfg.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBadgerStore(cfg BadgerConfig, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		now:    time.Now,
	}, nil
}

// SetClock replaces the store's clock. Tests only.
func (s *BadgerStore) SetClock(now func() time.Time) { s.now = now }

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// PutContent inserts or replaces a content item.
func (s *BadgerStore) PutContent(ctx context.Context, item *model.ContentItem) error {
	if item.ID == "" {
		return errors.New("content item has no id")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, contentPrefix+item.ID, item)
	})
}

// GetContent returns the content item with the given id, or ErrNotFound.
func (s *BadgerStore) GetContent(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, contentPrefix+id, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetContents returns the content items for the given ids in input order.
// Missing ids are skipped.
func (s *BadgerStore) GetContents(ctx context.Context, ids []string) ([]*model.ContentItem, error) {
	items := make([]*model.ContentItem, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var item model.ContentItem
			if err := getJSON(txn, contentPrefix+id, &item); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			items = append(items, &item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// IncrementEngagement applies counter increments in one transaction.
// Unknown content ids are skipped.
func (s *BadgerStore) IncrementEngagement(ctx context.Context, deltas []model.EngagementDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := s.now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, d := range deltas {
			var item model.ContentItem
			if err := getJSON(txn, contentPrefix+d.ContentID, &item); err != nil {
				if errors.Is(err, ErrNotFound) {
					s.logger.Warn().Str("content_id", d.ContentID).
						Msg("engagement increment for unknown content, skipping")
					continue
				}
				return err
			}
			item.Engagement.Likes += d.Likes
			item.Engagement.Shares += d.Shares
			item.Engagement.Clicks += d.Clicks
			item.UpdatedAt = now
			if err := putJSON(txn, contentPrefix+d.ContentID, &item); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyClassification sets category and tags in one transaction.
// Unknown content ids are skipped.
func (s *BadgerStore) ApplyClassification(ctx context.Context, updates []model.Classification) error {
	if len(updates) == 0 {
		return nil
	}
	now := s.now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, u := range updates {
			var item model.ContentItem
			if err := getJSON(txn, contentPrefix+u.ContentID, &item); err != nil {
				if errors.Is(err, ErrNotFound) {
					s.logger.Warn().Str("content_id", u.ContentID).
						Msg("classification for unknown content, skipping")
					continue
				}
				return err
			}
			item.Category = u.Category
			item.Tags = u.Tags
			item.UpdatedAt = now
			if err := putJSON(txn, contentPrefix+u.ContentID, &item); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUserProfile returns the stored interest profile, or ErrNotFound.
func (s *BadgerStore) GetUserProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userPrefix+userID, &profile)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertUserInterests replaces the user's interest profile.
func (s *BadgerStore) UpsertUserInterests(ctx context.Context, userID string, interests []model.InterestEntry) error {
	profile := model.UserProfile{
		UserID:    userID,
		Interests: interests,
		UpdatedAt: s.now().UTC(),
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, userPrefix+userID, &profile)
	})
}

// UpsertInteractions merges interaction deltas in one transaction.
func (s *BadgerStore) UpsertInteractions(ctx context.Context, userID string, deltas []model.InteractionDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, d := range deltas {
			key := interactionKey(userID, d.ContentID)
			record := model.InteractionRecord{
				UserID:    userID,
				ContentID: d.ContentID,
			}
			if err := getJSON(txn, key, &record); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if d.Like != nil {
				record.Liked = *d.Like
			}
			record.Shares += d.ShareDelta
			if d.ViewedAt != nil {
				if record.LastViewedAt == nil || d.ViewedAt.After(*record.LastViewedAt) {
					viewedAt := *d.ViewedAt
					record.LastViewedAt = &viewedAt
				}
			}
			if err := putJSON(txn, key, &record); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetInteractions returns the interaction records for (user, content ids).
// Pairs without a record are omitted.
func (s *BadgerStore) GetInteractions(ctx context.Context, userID string, contentIDs []string) ([]model.InteractionRecord, error) {
	records := make([]model.InteractionRecord, 0, len(contentIDs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, contentID := range contentIDs {
			var record model.InteractionRecord
			if err := getJSON(txn, interactionKey(userID, contentID), &record); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PutCategoryVector stores the embedding vector for a category or tag name.
func (s *BadgerStore) PutCategoryVector(ctx context.Context, name string, vector []float64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, categoryPrefix+name, vector)
	})
}

// ListCategoryVectors returns all category/tag embedding vectors.
func (s *BadgerStore) ListCategoryVectors(ctx context.Context) (map[string][]float64, error) {
	vectors := make(map[string][]float64)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(categoryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(categoryPrefix):])
			err := item.Value(func(val []byte) error {
				var vector []float64
				if err := json.Unmarshal(val, &vector); err != nil {
					return fmt.Errorf("failed to decode vector %q: %w", name, err)
				}
				vectors[name] = vector
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func interactionKey(userID, contentID string) string {
	return interactionPrefix + userID + ":" + contentID
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("failed to decode %q: %w", key, err)
		}
		return nil
	})
}

func putJSON(txn *badger.Txn, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

var _ Store = (*BadgerStore)(nil)
