// Recommendation System - Content Engagement and Similarity Recommendations
// Copyright 2026 Sudarshan Jha (jhasudarshan)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jhasudarshan/recommendation-system

package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"github.com/jhasudarshan/recommendation-system/internal/metrics"
)

// QdrantConfig holds the Qdrant client configuration.
type QdrantConfig struct {
	// Host is the Qdrant gRPC host. Default: localhost
	Host string `koanf:"host" validate:"required"`

	// Port is the Qdrant gRPC port. Default: 6334
	Port int `koanf:"port" validate:"gt=0,lte=65535"`

	// APIKey authenticates the connection. Empty disables auth.
	APIKey string `koanf:"api_key"`

	// UseTLS enables TLS on the gRPC connection. Default: false
	UseTLS bool `koanf:"use_tls"`
}

// DefaultQdrantConfig returns the default Qdrant configuration.
func DefaultQdrantConfig() QdrantConfig {
	return QdrantConfig{
		Host: "localhost",
		Port: 6334,
	}
}

// QdrantIndex is a Qdrant-backed implementation of Index.
type QdrantIndex struct {
	client *qdrant.Client
	logger zerolog.Logger
}

// NewQdrantIndex connects to Qdrant with the given configuration.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewQdrantIndex(cfg QdrantConfig, logger zerolog.Logger) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantIndex{
		client: client,
		logger: logger.With().Str("component", "vector-index").Logger(),
	}, nil
}

// EnsureCollection creates the collection if it does not exist yet, with the
// shared dimensionality and cosine distance.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     Dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", collection, err)
	}
	q.logger.Info().Str("collection", collection).Msg("created vector collection")
	return nil
}

// Upsert inserts or replaces points in the collection in one call.
func (q *QdrantIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(toFloat32(p.Vector)...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         structs,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points into %q: %w", len(points), collection, err)
	}
	metrics.RecordVectorUpsert(len(points))
	return nil
}

// Search returns the top-limit points most similar to query.
func (q *QdrantIndex) Search(ctx context.Context, collection string, query []float64, limit int) ([]Hit, error) {
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(toFloat32(query)...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", collection, err)
	}

	hits := make([]Hit, len(scored))
	for i, sp := range scored {
		hits[i] = Hit{
			ID:      sp.GetId().GetUuid(),
			Score:   float64(sp.GetScore()),
			Payload: payloadToMap(sp.GetPayload()),
		}
	}
	return hits, nil
}

// ListIDs returns the ids of all points in the collection by scrolling
// through it page by page.
func (q *QdrantIndex) ListIDs(ctx context.Context, collection string) ([]string, error) {
	const pageSize = 1000

	var (
		ids    []string
		offset *qdrant.PointId
	)
	for {
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Limit:          qdrant.PtrOf(uint32(pageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(false),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll %q: %w", collection, err)
		}
		for _, p := range points {
			id := p.GetId().GetUuid()
			// The offset point is returned again on subsequent pages.
			if offset != nil && id == offset.GetUuid() {
				continue
			}
			ids = append(ids, id)
		}
		if len(points) < pageSize {
			return ids, nil
		}
		offset = points[len(points)-1].GetId()
	}
}

// Delete removes the points with the given ids from the collection.
func (q *QdrantIndex) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d points from %q: %w", len(ids), collection, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		}
	}
	return out
}

var _ Index = (*QdrantIndex)(nil)
