package rag

import "errors"

// Sentinel errors classifying every failure the pipeline can surface.
// Callers match them with errors.Is so front-ends can distinguish a
// misconfigured system from an unreachable backend without parsing
// message strings.
var (
	// ErrConfig marks invalid settings (window/overlap/dimension) detected
	// at construction time. Fatal at startup — never retried.
	ErrConfig = errors.New("invalid configuration")

	// ErrConnection marks an unreachable backend. Reported as degraded
	// status by callers rather than crashing the process.
	ErrConnection = errors.New("backend unreachable")

	// ErrEmbedding marks a failure in the embedding backend.
	ErrEmbedding = errors.New("embedding failed")

	// ErrSchemaMismatch marks an existing collection whose vector dimension
	// differs from the configured embedding dimension.
	ErrSchemaMismatch = errors.New("collection schema mismatch")

	// ErrInvalidArgument marks a bad caller-supplied value (non-positive
	// top_k, reset without confirmation).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGeneration marks a failure in the LLM backend. Never silently
	// converted into an empty answer.
	ErrGeneration = errors.New("generation failed")
)
