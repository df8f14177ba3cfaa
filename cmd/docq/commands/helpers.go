package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/54b3r/docq-go/internal/embedder"
	"github.com/54b3r/docq-go/internal/ingestion"
	"github.com/54b3r/docq-go/internal/pipeline"
	"github.com/54b3r/docq-go/internal/provider"
	"github.com/54b3r/docq-go/internal/rag"
)

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is
// not set.
const defaultCollection = "docq-documents"

// getEnvOrDefault returns the environment variable value, or def when unset.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the environment variable parsed as an int, or def when
// unset or unparseable.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// chunkOverlap returns the CHUNK_OVERLAP env value, or nil when unset or
// unparseable so the pipeline default applies. An explicit "0" disables
// overlap and must not fall back to the default.
func chunkOverlap() *int {
	v := os.Getenv("CHUNK_OVERLAP")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// buildStore constructs the Qdrant vector store from QDRANT_* environment
// variables. The vector size is derived from the configured embedding backend
// so EnsureCollection creates a compatible schema.
func buildStore() (*rag.QdrantStore, error) {
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama"))

	store, err := rag.NewQdrantStore(&rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant store: %w", err)
	}
	return store, nil
}

// buildRetriever wires the embedder and vector store into a retriever.
// The returned close function releases the store's gRPC connection.
func buildRetriever(log *slog.Logger) (rag.Retriever, *rag.QdrantStore, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := buildStore()
	if err != nil {
		return nil, nil, nil, err
	}

	topK := getEnvInt("RETRIEVAL_TOP_K", 5)
	retriever, err := rag.NewRetriever(emb, store, topK)
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	return retriever, store, func() { _ = store.Close() }, nil
}

// buildQAPipeline wires the full question-answering stack: embedder, vector
// store, retriever, and chat model. The returned close function releases the
// store connection.
func buildQAPipeline(ctx context.Context, log *slog.Logger) (*pipeline.Pipeline, *rag.QdrantStore, func(), error) {
	retriever, store, closeStore, err := buildRetriever(log)
	if err != nil {
		return nil, nil, nil, err
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		closeStore()
		return nil, nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}

	qa, err := pipeline.New(&pipeline.Config{
		Retriever: retriever,
		ChatModel: chatModel,
		TopK:      getEnvInt("RETRIEVAL_TOP_K", 5),
	})
	if err != nil {
		closeStore()
		return nil, nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return qa, store, closeStore, nil
}

// buildIngestionPipeline wires the embedder and store into an ingestion
// pipeline with chunking parameters from the environment, ensuring the
// collection exists first.
func buildIngestionPipeline(ctx context.Context, log *slog.Logger) (*ingestion.Pipeline, *rag.QdrantStore, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := buildStore()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	p, err := ingestion.NewPipeline(emb, store, &ingestion.Config{
		WindowSize: getEnvInt("CHUNK_WINDOW_SIZE", 0),
		Overlap:    chunkOverlap(),
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	return p, store, func() { _ = store.Close() }, nil
}
