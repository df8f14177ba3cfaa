package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// insertBatchSize is the maximum number of points sent per upsert call.
// Larger ingests are split internally so a single oversized request never
// hits the backend's message size limit.
const insertBatchSize = 128

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection. Must match the embedding model's output dimension.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a QdrantStore for the configured collection.
// Construction never contacts the backend — callers probe reachability with
// Ping and create the collection with EnsureCollection, so an unreachable
// Qdrant is reported as degraded status rather than a startup crash.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be positive: %w", ErrConfig)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// EnsureCollection creates the collection if it does not already exist.
// Idempotent: an existing collection with the configured dimension is left
// untouched; an existing collection with a different dimension fails with
// ErrSchemaMismatch because stored vectors would be unsearchable.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w (%w)", err, ErrConnection)
	}
	if exists {
		return s.checkDimension(ctx)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// checkDimension verifies the existing collection's vector size matches the
// configured embedding dimension.
func (s *QdrantStore) checkDimension(ctx context.Context) error {
	info, err := s.client.GetCollectionInfo(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to inspect collection %q: %w", s.cfg.Collection, err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		// Named-vector collections are not created by docq; treat as foreign.
		return fmt.Errorf("qdrant: collection %q uses an unexpected vector layout: %w",
			s.cfg.Collection, ErrSchemaMismatch)
	}
	if params.GetSize() != s.cfg.VectorSize {
		return fmt.Errorf("qdrant: collection %q has dimension %d, embedder produces %d: %w",
			s.cfg.Collection, params.GetSize(), s.cfg.VectorSize, ErrSchemaMismatch)
	}
	return nil
}

// Insert appends new records to the collection. Every record receives a
// fresh UUID primary key, so existing records are never overwritten.
// Points are sent in batches of insertBatchSize; a failed batch is retried
// once before the error is surfaced together with the count of records that
// were persisted by the preceding batches.
func (s *QdrantStore) Insert(ctx context.Context, docs []Document, embeddings [][]float32) (int, error) {
	if len(docs) != len(embeddings) {
		return 0, fmt.Errorf("qdrant: %d documents but %d embeddings: %w",
			len(docs), len(embeddings), ErrInvalidArgument)
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]interface{}{
			"content": doc.Content,
			"source":  doc.Source,
		}
		for k, v := range doc.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	inserted := 0
	for start := 0; start < len(points); start += insertBatchSize {
		end := min(start+insertBatchSize, len(points))
		batch := points[start:end]

		if err := s.upsertBatch(ctx, batch); err != nil {
			// One retry per batch: transient gRPC failures are common during
			// bulk loads; anything persistent surfaces with the partial count.
			if err = s.upsertBatch(ctx, batch); err != nil {
				return inserted, fmt.Errorf("qdrant: upsert failed after %d of %d records: %w",
					inserted, len(points), err)
			}
		}
		inserted += len(batch)
	}

	return inserted, nil
}

// upsertBatch sends one batch of points, waiting for the write to be applied.
func (s *QdrantStore) upsertBatch(ctx context.Context, batch []*qdrant.PointStruct) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         batch,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

// Search performs a cosine similarity search and returns the top-k results
// ordered by descending similarity. Ties fall back to Qdrant's stable
// internal ordering, which follows insertion order for identical scores.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("qdrant: top_k must be positive, got %d: %w", topK, ErrInvalidArgument)
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := Document{
			ID:       r.Id.GetUuid(),
			Score:    r.Score,
			Metadata: make(map[string]string),
		}
		if p := r.Payload; p != nil {
			if v, ok := p["content"]; ok {
				doc.Content = v.GetStringValue()
			}
			if v, ok := p["source"]; ok {
				doc.Source = v.GetStringValue()
			}
			for k, v := range p {
				if k != "content" && k != "source" {
					doc.Metadata[k] = v.GetStringValue()
				}
			}
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Count returns the exact number of records in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return count, nil
}

// Reset deletes every record in the collection. The collection itself and
// its schema survive, so a subsequent ingest needs no EnsureCollection.
// Irreversible — confirmation is enforced at the calling layer.
func (s *QdrantStore) Reset(ctx context.Context) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: reset failed: %w", err)
	}
	return nil
}

// sourceScrollLimit caps how many records one Sources call inspects.
const sourceScrollLimit = 10000

// Sources returns the distinct document sources present in the collection,
// in first-appearance order. At most sourceScrollLimit records are inspected.
func (s *QdrantStore) Sources(ctx context.Context) ([]string, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.cfg.Collection,
		Limit:          qdrant.PtrOf(uint32(sourceScrollLimit)),
		WithPayload:    qdrant.NewWithPayloadInclude("source"),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
	}

	seen := make(map[string]struct{})
	var sources []string
	for _, p := range points {
		v, ok := p.Payload["source"]
		if !ok {
			continue
		}
		src := v.GetStringValue()
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources, nil
}

// Collection returns the configured collection name.
func (s *QdrantStore) Collection() string {
	return s.cfg.Collection
}

// Ping calls the Qdrant HealthCheck RPC. An unreachable backend is reported
// with ErrConnection so callers can show "not running" instead of crashing.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w (%w)", err, ErrConnection)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
