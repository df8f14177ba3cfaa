package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/docq-go/internal/embedder"
	"github.com/54b3r/docq-go/internal/ingestion"
	"github.com/54b3r/docq-go/internal/logging"
	"github.com/54b3r/docq-go/internal/mcp"
	"github.com/54b3r/docq-go/internal/pipeline"
	"github.com/54b3r/docq-go/internal/provider"
	"github.com/54b3r/docq-go/internal/rag"
	"github.com/54b3r/docq-go/internal/server"
	"github.com/54b3r/docq-go/internal/version"
)

// NewMCPCmd constructs the `docq mcp` command, which serves the Model
// Context Protocol over stdio for editor and agent integration.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol over stdio",
		Long: `Expose the docq pipeline as MCP tools over stdin/stdout.

Tools: query_rag, search_documents, ingest_documents, get_status,
reset_collection. Register the command in an MCP-capable client, e.g.:

  { "command": "docq", "args": ["mcp"] }

Logs go to stderr; stdout carries only the MCP protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("mcp: failed to initialise embedder: %w", err)
			}

			vectorStore, err := buildStore()
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			defer vectorStore.Close()

			if err := vectorStore.EnsureCollection(ctx); err != nil {
				log.Warn("mcp: could not ensure collection at startup", slog.Any("error", err))
			}

			retriever, err := rag.NewRetriever(emb, vectorStore, getEnvInt("RETRIEVAL_TOP_K", 5))
			if err != nil {
				return fmt.Errorf("mcp: failed to create retriever: %w", err)
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("mcp: failed to initialise model provider: %w", err)
			}

			qa, err := pipeline.New(&pipeline.Config{
				Retriever: retriever,
				ChatModel: chatModel,
				TopK:      getEnvInt("RETRIEVAL_TOP_K", 5),
			})
			if err != nil {
				return fmt.Errorf("mcp: failed to create pipeline: %w", err)
			}

			ingester, err := ingestion.NewPipeline(emb, vectorStore, &ingestion.Config{
				WindowSize: getEnvInt("CHUNK_WINDOW_SIZE", 0),
				Overlap:    chunkOverlap(),
			})
			if err != nil {
				return fmt.Errorf("mcp: failed to create ingestion pipeline: %w", err)
			}

			providerName := getEnvOrDefault("MODEL_PROVIDER", "ollama")
			srv, err := mcp.NewServer(&mcp.Deps{
				Pipeline:       qa,
				Retriever:      retriever,
				Ingester:       ingester,
				Store:          vectorStore,
				LLM:            server.NewLLMPinger(chatModel, providerName),
				ChatModel:      provider.ModelNameFromEnv(),
				EmbeddingModel: embedder.ModelNameFromEnv(),
			}, version.Version)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			return srv.RunStdio(ctx)
		},
	}

	return cmd
}
