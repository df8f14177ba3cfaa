// Package ingestion implements the document ingestion pipeline.
// It loads documents from the filesystem, splits their content into
// overlapping chunks, embeds each chunk, and inserts the results into the
// vector store. This pipeline is invoked by the `docq ingest` CLI command
// and the POST /api/ingest endpoint.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/54b3r/docq-go/internal/chunker"
	"github.com/54b3r/docq-go/internal/document"
	"github.com/54b3r/docq-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// WindowSize is the maximum number of runes per document chunk.
	// Defaults to 1000 if zero.
	WindowSize int

	// Overlap is the number of runes shared between consecutive chunks.
	// Nil selects the default of 200 (or WindowSize/10 when that would not
	// fit); an explicit zero disables overlap entirely.
	Overlap *int
}

// Result summarizes one ingestion run. A run only fails outright when the
// target path itself is unusable; per-document failures are isolated and
// counted here instead.
type Result struct {
	// DocumentsProcessed is the number of documents chunked and stored.
	DocumentsProcessed int

	// DocumentsFailed is the number of documents that could not be loaded,
	// embedded, or stored.
	DocumentsFailed int

	// ChunksCreated is the total number of chunks inserted across all documents.
	ChunksCreated int

	// Skipped lists files that were ignored because their format is unsupported.
	Skipped []string
}

// Pipeline orchestrates the load → chunk → embed → insert flow for files
// and directories.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// windowSize is the resolved maximum chunk size in runes.
	windowSize int

	// overlap is the resolved number of runes shared between chunks.
	overlap int
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil: %w", rag.ErrConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil: %w", rag.ErrConfig)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = 1000
	}
	overlap := 200
	if cfg.Overlap != nil {
		overlap = *cfg.Overlap
	}
	if overlap < 0 {
		return nil, fmt.Errorf("ingestion: overlap must not be negative, got %d: %w", overlap, rag.ErrConfig)
	}
	if overlap >= windowSize {
		overlap = windowSize / 10
	}

	return &Pipeline{
		embedder:   embedder,
		store:      store,
		windowSize: windowSize,
		overlap:    overlap,
	}, nil
}

// IngestPath ingests a single file or, when path is a directory, every
// supported file beneath it. Documents are processed sequentially; a document
// that fails to load, embed, or store is counted in Result.DocumentsFailed and
// processing continues with the next one. Progress is reported via the
// optional progress callback.
func (p *Pipeline) IngestPath(ctx context.Context, path string, progress func(msg string)) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %s: %w (%w)", path, err, rag.ErrInvalidArgument)
	}

	result := &Result{}

	if !info.IsDir() {
		if document.DetectFormat(path) == document.FormatUnknown {
			return nil, fmt.Errorf("ingestion: %s: %w (%w)",
				path, document.ErrUnsupportedFormat, rag.ErrInvalidArgument)
		}
		p.ingestFile(ctx, path, result, progress)
		return result, nil
	}

	err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if document.DetectFormat(entry) == document.FormatUnknown {
			result.Skipped = append(result.Skipped, entry)
			progress(fmt.Sprintf("skipping %s: unsupported format", entry))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.ingestFile(ctx, entry, result, progress)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("ingestion: walking %s: %w", path, err)
	}

	return result, nil
}

// ingestFile runs one document through the pipeline and folds the outcome
// into result.
func (p *Pipeline) ingestFile(ctx context.Context, path string, result *Result, progress func(msg string)) {
	progress(fmt.Sprintf("loading %s", path))

	doc, err := document.Load(path)
	if err != nil {
		result.DocumentsFailed++
		progress(fmt.Sprintf("failed %s: %v", path, err))
		return
	}

	chunks, err := chunker.SplitAll(doc, p.windowSize, p.overlap)
	if err != nil {
		result.DocumentsFailed++
		progress(fmt.Sprintf("failed %s: %v", path, err))
		return
	}
	if len(chunks) == 0 {
		result.DocumentsProcessed++
		progress(fmt.Sprintf("no content in %s", path))
		return
	}
	progress(fmt.Sprintf("chunked %s into %d chunks", path, len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		result.DocumentsFailed++
		progress(fmt.Sprintf("failed %s: embedding: %v", path, err))
		return
	}

	docs := make([]rag.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, rag.Document{
			Content: c.Text,
			Source:  c.Source,
			Metadata: map[string]string{
				"chunk_index": fmt.Sprintf("%d", c.Index),
				"format":      string(c.Format),
			},
		})
	}

	inserted, err := p.store.Insert(ctx, docs, embeddings)
	result.ChunksCreated += inserted
	if err != nil {
		result.DocumentsFailed++
		progress(fmt.Sprintf("failed %s: insert: %v", path, err))
		return
	}

	result.DocumentsProcessed++
	progress(fmt.Sprintf("ingested %d chunks from %s", inserted, path))
}

// IsInvalidPath reports whether an IngestPath error was caused by the target
// path rather than a backend failure. Front-ends use it to choose between a
// 400 and a 502.
func IsInvalidPath(err error) bool {
	return errors.Is(err, rag.ErrInvalidArgument)
}
