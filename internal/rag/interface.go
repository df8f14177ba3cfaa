// Package rag defines the interfaces and data types for the retrieval side
// of the docq pipeline: vector storage, query retrieval, and embedding.
// Concrete implementations (Qdrant, the HTTP embedders) satisfy these
// interfaces so the generation layer never depends on a specific backend.
package rag

import (
	"context"
)

// Document is a stored or retrieved unit of knowledge — one chunk of an
// ingested source document together with its provenance.
type Document struct {
	// ID is the unique primary key assigned at insert time. Immutable.
	ID string

	// Content is the chunk text.
	Content string

	// Source is the path or logical name of the document the chunk came from.
	Source string

	// Metadata holds additional provenance (format, chunk_index, offsets).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed (e.g. at insert time).
	Score float32
}

// VectorStore is the interface for persisting and searching document
// embeddings. Implementations must be safe to call from multiple goroutines;
// a Reset concurrent with in-flight Search or Insert relies on the backend's
// own transactional guarantees.
type VectorStore interface {
	// Insert appends new records. The embeddings slice must be parallel to
	// docs — embeddings[i] is the vector for docs[i]. Existing primary keys
	// are never overwritten. Returns the number of records that were
	// persisted before any error.
	Insert(ctx context.Context, docs []Document, embeddings [][]float32) (int, error)

	// Search returns up to topK records ordered by descending similarity to
	// queryEmbedding. topK <= 0 fails with ErrInvalidArgument.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Count returns the total number of records in the collection.
	Count(ctx context.Context) (uint64, error)

	// Reset drops every record in the collection. Destructive and
	// irreversible — callers must require explicit confirmation first.
	Reset(ctx context.Context) error

	// Ping reports backend reachability. Returns an error wrapping
	// ErrConnection when the backend cannot be reached.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings. Implementations must
// be safe to call from multiple goroutines, must preserve input order in the
// output slice, and must return L2-normalized vectors so inner-product
// similarity is equivalent to cosine similarity.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever turns a query string into a ranked list of documents.
// It composes an Embedder and a VectorStore and performs no filtering,
// thresholding, or re-ranking of its own.
type Retriever interface {
	// Retrieve returns the topK most relevant documents for the query,
	// ordered by descending similarity.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
