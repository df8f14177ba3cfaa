// Package chunker splits document text into overlapping fixed-size windows.
// Chunks are the atomic unit of embedding and retrieval: each carries its
// position within the document and the provenance inherited from it.
package chunker

import (
	"fmt"
	"iter"

	"github.com/54b3r/docq-go/internal/document"
	"github.com/54b3r/docq-go/internal/rag"
)

// Chunk is one window of a document's text. Offsets are rune positions into
// the original content, so slicing the source text at [Start:End) (as runes)
// reproduces Text exactly. Chunks are never mutated after creation.
type Chunk struct {
	// Index is the sequential position of this chunk within its document.
	Index int

	// Text is the window's content. Never longer than the window size.
	Text string

	// Start is the rune offset of the window's first character.
	Start int

	// End is the rune offset one past the window's last character.
	End int

	// Source is the originating document's path or logical name.
	Source string

	// Format is the originating document's format tag.
	Format document.Format
}

// Split returns a lazy sequence of overlapping windows over doc's content.
// The window advances by windowSize-overlap runes per step; consecutive
// chunks therefore share exactly overlap runes, except the final chunk,
// which may be shorter than windowSize but is always emitted so trailing
// content is never lost.
//
// The returned sequence is finite and restartable: ranging over it twice
// yields identical chunks. Fails with ErrConfig when windowSize <= 0 or
// overlap is outside [0, windowSize) — an overlap >= windowSize would make
// the window stop advancing.
func Split(doc document.Document, windowSize, overlap int) (iter.Seq[Chunk], error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("chunker: window size must be positive, got %d: %w",
			windowSize, rag.ErrConfig)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("chunker: overlap must be in [0, %d), got %d: %w",
			windowSize, overlap, rag.ErrConfig)
	}

	// Rune-based windows: byte slicing would split multibyte characters at
	// window boundaries and break the reconstruction invariant.
	runes := []rune(doc.Content)
	stride := windowSize - overlap

	return func(yield func(Chunk) bool) {
		index := 0
		for start := 0; start < len(runes); start += stride {
			end := min(start+windowSize, len(runes))

			chunk := Chunk{
				Index:  index,
				Text:   string(runes[start:end]),
				Start:  start,
				End:    end,
				Source: doc.Path,
				Format: doc.Format,
			}
			if !yield(chunk) {
				return
			}
			index++

			if end == len(runes) {
				return
			}
		}
	}, nil
}

// SplitAll materializes Split into a slice. Convenience for callers that
// need the chunk count up front (ingestion reporting, tests).
func SplitAll(doc document.Document, windowSize, overlap int) ([]Chunk, error) {
	seq, err := Split(doc, windowSize, overlap)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for c := range seq {
		chunks = append(chunks, c)
	}
	return chunks, nil
}
