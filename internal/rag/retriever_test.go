package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector per input text and records calls.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeStore records the search it was asked to run and returns canned docs.
type fakeStore struct {
	docs      []Document
	err       error
	gotVector []float32
	gotTopK   int
}

func (f *fakeStore) Insert(context.Context, []Document, [][]float32) (int, error) {
	return 0, nil
}

func (f *fakeStore) Search(_ context.Context, vec []float32, topK int) ([]Document, error) {
	f.gotVector = vec
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeStore) Count(context.Context) (uint64, error) { return uint64(len(f.docs)), nil }
func (f *fakeStore) Reset(context.Context) error           { return nil }
func (f *fakeStore) Ping(context.Context) error            { return nil }
func (f *fakeStore) Close() error                          { return nil }

func Test_Retriever_PassesEmbeddingToStore(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	store := &fakeStore{docs: []Document{{ID: "a", Content: "hello", Score: 0.9}}}

	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "question", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("want the store's ranked result unchanged, got %v", docs)
	}
	if store.gotTopK != 3 {
		t.Errorf("top_k: want 3, got %d", store.gotTopK)
	}
	if len(store.gotVector) != 3 || store.gotVector[0] != 0.1 {
		t.Errorf("query vector not forwarded: got %v", store.gotVector)
	}
}

func Test_Retriever_DefaultTopK(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1}}
	store := &fakeStore{}

	r, err := NewRetriever(emb, store, 7)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if store.gotTopK != 7 {
		t.Errorf("top_k fallback: want 7, got %d", store.gotTopK)
	}
}

func Test_Retriever_PropagatesEmbeddingError(t *testing.T) {
	t.Parallel()

	embErr := errors.New("model offline")
	emb := &fakeEmbedder{err: embErr}
	store := &fakeStore{}

	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	_, err = r.Retrieve(context.Background(), "q", 1)
	if !errors.Is(err, embErr) {
		t.Errorf("want wrapped embedder error, got %v", err)
	}
	if store.gotTopK != 0 {
		t.Error("search must not run after an embedding failure")
	}
}

func Test_Retriever_PropagatesSearchError(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1}}
	store := &fakeStore{err: ErrInvalidArgument}

	r, err := NewRetriever(emb, store, 5)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	_, err = r.Retrieve(context.Background(), "q", -1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("want ErrInvalidArgument, got %v", err)
	}
}

func Test_Retriever_NilDependenciesRejected(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 5); !errors.Is(err, ErrConfig) {
		t.Errorf("nil embedder: want ErrConfig, got %v", err)
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 5); !errors.Is(err, ErrConfig) {
		t.Errorf("nil store: want ErrConfig, got %v", err)
	}
}
