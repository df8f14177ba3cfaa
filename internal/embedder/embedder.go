// Package embedder provides implementations of the rag.Embedder interface
// for converting text into dense vector embeddings. Each implementation
// talks to a different backend (Ollama, OpenAI, Azure OpenAI) via plain
// HTTP — no additional SDK dependencies are required.
//
// Every adapter L2-normalizes its vectors before returning them, so
// inner-product similarity in the vector store is equivalent to cosine
// similarity regardless of what the backend emits.
package embedder

import "math"

// normalize scales vec in place to unit L2 length. Zero vectors are left
// untouched — dividing by zero would poison the whole batch.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// normalizeAll applies normalize to every vector in the batch.
func normalizeAll(vecs [][]float32) {
	for _, v := range vecs {
		normalize(v)
	}
}
