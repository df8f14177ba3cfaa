// Package mcp exposes the docq pipeline as a Model Context Protocol server
// over stdio, so MCP-capable clients (editors, agents) can query the indexed
// document collection as a tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/docq-go/internal/ingestion"
	"github.com/54b3r/docq-go/internal/pipeline"
	"github.com/54b3r/docq-go/internal/rag"
)

// Answerer is the question-answering surface the MCP server exposes.
// *pipeline.Pipeline satisfies it.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int, history []*schema.Message) (*pipeline.Answer, error)
}

// Ingester runs filesystem ingestion. *ingestion.Pipeline satisfies it.
type Ingester interface {
	IngestPath(ctx context.Context, path string, progress func(msg string)) (*ingestion.Result, error)
}

// Collection is the administrative view of the vector store.
// *rag.QdrantStore satisfies it.
type Collection interface {
	Count(ctx context.Context) (uint64, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Collection() string
}

// Pinger probes a backend's reachability for the get_status tool.
// *server.LLMPinger satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// Deps bundles the domain dependencies the MCP tools call into.
type Deps struct {
	// Pipeline answers questions. Required.
	Pipeline Answerer
	// Retriever backs the search_documents tool. Required.
	Retriever rag.Retriever
	// Ingester backs the ingest_documents tool. Required.
	Ingester Ingester
	// Store backs the get_status and reset_collection tools. Required.
	Store Collection
	// LLM probes the chat backend for get_status. Optional.
	LLM Pinger
	// ChatModel names the configured chat model for get_status.
	ChatModel string
	// EmbeddingModel names the configured embedding model for get_status.
	EmbeddingModel string
}

// Server wraps the MCP SDK server and the docq pipeline dependencies.
type Server struct {
	mcpServer *mcp.Server
	deps      *Deps
}

// NewServer constructs an MCP server with all docq tools registered.
func NewServer(deps *Deps, version string) (*Server, error) {
	if deps == nil || deps.Pipeline == nil || deps.Retriever == nil ||
		deps.Ingester == nil || deps.Store == nil {
		return nil, fmt.Errorf("mcp: all dependencies must be non-nil")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "docq",
		Version: version,
	}, nil)

	s := &Server{mcpServer: mcpServer, deps: deps}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("mcp: failed to register tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on the given transport. Blocking; returns when
// the transport is closed or the context is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// RunStdio serves the MCP protocol on stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// QueryInput is the input schema for the query_rag tool.
type QueryInput struct {
	Question string `json:"question" jsonschema:"The natural language question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"Number of document chunks to retrieve for grounding (default 5)"`
}

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The text to search for in the indexed documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Number of results to return (default 5)"`
}

// IngestInput is the input schema for the ingest_documents tool.
type IngestInput struct {
	Path  string `json:"path" jsonschema:"Server-local file or directory path to ingest"`
	Reset bool   `json:"reset,omitempty" jsonschema:"Delete all indexed documents before ingesting"`
}

// StatusInput is the (empty) input schema for the get_status tool.
type StatusInput struct{}

// ResetInput is the input schema for the reset_collection tool.
type ResetInput struct {
	Confirm bool `json:"confirm" jsonschema:"Must be true to confirm deleting all indexed documents"`
}

// registerTools registers every docq tool on the MCP server.
func (s *Server) registerTools() error {
	querySchema, err := jsonschema.For[QueryInput](nil)
	if err != nil {
		return fmt.Errorf("schema for query_rag: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "query_rag",
		Description: "Answer a question using the indexed document collection. " +
			"Retrieves the most relevant chunks and generates a grounded answer with source attribution.",
		InputSchema: querySchema,
	}, s.queryRAG)

	searchSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_documents: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "search_documents",
		Description: "Search the indexed documents by semantic similarity without generating an answer. " +
			"Returns the matching chunks with their sources and scores.",
		InputSchema: searchSchema,
	}, s.searchDocuments)

	ingestSchema, err := jsonschema.For[IngestInput](nil)
	if err != nil {
		return fmt.Errorf("schema for ingest_documents: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "ingest_documents",
		Description: "Ingest a file or directory into the document collection. " +
			"Supported formats: .txt, .md, .pdf, .docx.",
		InputSchema: ingestSchema,
	}, s.ingestDocuments)

	statusSchema, err := jsonschema.For[StatusInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_status: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_status",
		Description: "Report the vector store connection status, collection name, and indexed chunk count.",
		InputSchema: statusSchema,
	}, s.getStatus)

	resetSchema, err := jsonschema.For[ResetInput](nil)
	if err != nil {
		return fmt.Errorf("schema for reset_collection: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "reset_collection",
		Description: "Delete every indexed document from the collection. Irreversible — " +
			"requires confirm=true.",
		InputSchema: resetSchema,
	}, s.resetCollection)

	return nil
}

// queryRAG handles the query_rag tool call.
func (s *Server) queryRAG(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Question) == "" {
		return errorResult("question must not be empty"), nil, nil
	}

	ans, err := s.deps.Pipeline.Answer(ctx, in.Question, in.TopK, nil)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	var b strings.Builder
	b.WriteString(ans.Text)
	if len(ans.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, src := range ans.Sources {
			b.WriteString("- ")
			b.WriteString(src)
			b.WriteString("\n")
		}
	}

	return textResult(b.String()), nil, nil
}

// searchDocuments handles the search_documents tool call.
func (s *Server) searchDocuments(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Query) == "" {
		return errorResult("query must not be empty"), nil, nil
	}

	docs, err := s.deps.Retriever.Retrieve(ctx, in.Query, in.TopK)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if len(docs) == 0 {
		return textResult("No matching documents found."), nil, nil
	}

	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "### Result %d (score %.3f, source %s)\n%s\n\n", i+1, d.Score, d.Source, d.Content)
	}
	return textResult(b.String()), nil, nil
}

// ingestDocuments handles the ingest_documents tool call.
func (s *Server) ingestDocuments(ctx context.Context, _ *mcp.CallToolRequest, in IngestInput) (*mcp.CallToolResult, any, error) {
	if in.Path == "" {
		return errorResult("path must not be empty"), nil, nil
	}

	if in.Reset {
		if err := s.deps.Store.Reset(ctx); err != nil {
			return errorResult(err.Error()), nil, nil
		}
	}

	result, err := s.deps.Ingester.IngestPath(ctx, in.Path, nil)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	summary, _ := json.MarshalIndent(map[string]any{
		"documents_processed": result.DocumentsProcessed,
		"documents_failed":    result.DocumentsFailed,
		"chunks_created":      result.ChunksCreated,
		"skipped":             result.Skipped,
	}, "", "  ")
	return textResult(string(summary)), nil, nil
}

// getStatus handles the get_status tool call. Each probed backend gets its
// own connectivity flag; any unreachable one degrades the overall status.
func (s *Server) getStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, any, error) {
	status := map[string]any{
		"status":     "ok",
		"collection": s.deps.Store.Collection(),
	}
	if s.deps.ChatModel != "" {
		status["chat_model"] = s.deps.ChatModel
	}
	if s.deps.EmbeddingModel != "" {
		status["embedding_model"] = s.deps.EmbeddingModel
	}

	if err := s.deps.Store.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["vector_store"] = "unreachable"
		status["error"] = err.Error()
	} else if count, err := s.deps.Store.Count(ctx); err != nil {
		status["status"] = "degraded"
		status["vector_store"] = "unreachable"
		status["error"] = err.Error()
	} else {
		status["vector_store"] = "ok"
		status["documents"] = count
	}

	if s.deps.LLM != nil {
		if err := s.deps.LLM.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["llm"] = "unreachable"
			if _, ok := status["error"]; !ok {
				status["error"] = err.Error()
			}
		} else {
			status["llm"] = "ok"
		}
	}

	body, _ := json.MarshalIndent(status, "", "  ")
	return textResult(string(body)), nil, nil
}

// resetCollection handles the reset_collection tool call. The confirm flag
// is enforced here as well as in the schema description — a client that
// forgets it gets a tool error, not a wiped collection.
func (s *Server) resetCollection(ctx context.Context, _ *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, any, error) {
	if !in.Confirm {
		return errorResult("reset_collection requires confirm=true — this deletes all indexed documents"), nil, nil
	}

	if err := s.deps.Store.Reset(ctx); err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(fmt.Sprintf("Collection %q reset.", s.deps.Store.Collection())), nil, nil
}

// textResult builds a successful single-text MCP tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds an in-band MCP tool error. Domain failures are returned
// this way so the client model can see and react to them; only protocol-level
// faults surface as Go errors.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + msg}},
		IsError: true,
	}
}
