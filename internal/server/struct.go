package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docq-go/internal/ingestion"
	"github.com/54b3r/docq-go/internal/pipeline"
	"github.com/54b3r/docq-go/internal/rag"
	"github.com/54b3r/docq-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil a fresh registry is created.
	Registry *prometheus.Registry
}

// Answerer is the question-answering surface the server exposes.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type Answerer interface {
	// Answer runs the blocking QA flow.
	Answer(ctx context.Context, question string, topK int, history []*schema.Message) (*pipeline.Answer, error)
	// AnswerStream runs the streaming QA flow.
	AnswerStream(ctx context.Context, question string, topK int, history []*schema.Message) (<-chan pipeline.Event, error)
}

// Ingester runs filesystem ingestion. *ingestion.Pipeline satisfies it.
type Ingester interface {
	// IngestPath ingests a file or directory.
	IngestPath(ctx context.Context, path string, progress func(msg string)) (*ingestion.Result, error)
}

// Collection is the administrative view of the vector store used by the
// status, reset, and documents endpoints. *rag.QdrantStore satisfies it.
type Collection interface {
	// Count returns the number of stored records.
	Count(ctx context.Context) (uint64, error)
	// Reset removes every stored record.
	Reset(ctx context.Context) error
	// Ping reports backend reachability.
	Ping(ctx context.Context) error
	// Sources lists the distinct document sources in the collection.
	Sources(ctx context.Context) ([]string, error)
	// Collection returns the collection name.
	Collection() string
}

// Deps bundles the domain dependencies the server exposes over HTTP.
type Deps struct {
	// Pipeline answers questions. Required.
	Pipeline Answerer
	// Retriever backs POST /api/search. Required.
	Retriever rag.Retriever
	// Ingester backs POST /api/ingest. Required.
	Ingester Ingester
	// Store backs status, reset, and documents. Required.
	Store Collection
	// History persists chat turns per session. Optional.
	History store.ConversationStore
	// LLM probes the chat backend for GET /api/status. Optional; when nil the
	// status response omits the llm connectivity flag.
	LLM Pinger
	// ChatModel names the configured chat model, reported by GET /api/status.
	ChatModel string
	// EmbeddingModel names the configured embedding model, reported by
	// GET /api/status.
	EmbeddingModel string
}

// Server is the HTTP server that exposes the docq pipeline.
type Server struct {
	// deps holds the domain dependencies.
	deps *Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// TopK overrides the number of documents retrieved (0 = default).
	TopK int `json:"top_k,omitempty"`
	// Stream selects an SSE response instead of a single JSON body.
	Stream bool `json:"stream,omitempty"`
	// Session ties the question to a stored conversation thread.
	Session string `json:"session,omitempty"`
}

// queryResponse is the JSON response for non-streaming POST /api/query.
type queryResponse struct {
	// Answer is the model's full response text.
	Answer string `json:"answer"`
	// Sources lists the distinct grounding sources in rank order.
	Sources []string `json:"sources"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the text to search for.
	Query string `json:"query"`
	// TopK overrides the number of results (0 = default).
	TopK int `json:"top_k,omitempty"`
}

// searchResult is one entry in the searchResponse.
type searchResult struct {
	// Content is the matched chunk text.
	Content string `json:"content"`
	// Source is the originating document.
	Source string `json:"source"`
	// Score is the cosine similarity of the match.
	Score float32 `json:"score"`
	// Metadata carries the chunk's stored metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	// Results are the matches in descending similarity order.
	Results []searchResult `json:"results"`
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	// Path is the server-local file or directory to ingest.
	Path string `json:"path"`
	// Reset deletes all indexed documents before ingesting.
	Reset bool `json:"reset,omitempty"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	// DocumentsProcessed is the number of documents chunked and stored.
	DocumentsProcessed int `json:"documents_processed"`
	// DocumentsFailed is the number of documents that could not be ingested.
	DocumentsFailed int `json:"documents_failed"`
	// ChunksCreated is the total number of chunks inserted.
	ChunksCreated int `json:"chunks_created"`
	// Skipped lists files ignored due to unsupported formats.
	Skipped []string `json:"skipped,omitempty"`
}

// statusResponse is the JSON response for GET /api/status.
type statusResponse struct {
	// Status is "ok" when every probed backend is reachable, "degraded" otherwise.
	Status string `json:"status"`
	// Collection is the vector store collection name.
	Collection string `json:"collection"`
	// Documents is the number of stored records (0 when the store is unreachable).
	Documents uint64 `json:"documents"`
	// VectorStore is the vector store connectivity flag: "ok" or "unreachable".
	VectorStore string `json:"vector_store"`
	// LLM is the chat backend connectivity flag. Omitted when no probe is wired.
	LLM string `json:"llm,omitempty"`
	// ChatModel is the configured chat model name.
	ChatModel string `json:"chat_model,omitempty"`
	// EmbeddingModel is the configured embedding model name.
	EmbeddingModel string `json:"embedding_model,omitempty"`
	// Error carries the first reachability failure when degraded.
	Error string `json:"error,omitempty"`
}

// resetRequest is the JSON body for POST /api/reset.
type resetRequest struct {
	// Confirm must be true; reset is irreversible.
	Confirm bool `json:"confirm"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents lists the distinct sources present in the collection.
	Documents []string `json:"documents"`
	// Count is len(Documents).
	Count int `json:"count"`
}
