package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/docq-go/internal/embedder"
	"github.com/54b3r/docq-go/internal/ingestion"
	"github.com/54b3r/docq-go/internal/logging"
	"github.com/54b3r/docq-go/internal/pipeline"
	"github.com/54b3r/docq-go/internal/provider"
	"github.com/54b3r/docq-go/internal/rag"
	"github.com/54b3r/docq-go/internal/server"
	"github.com/54b3r/docq-go/internal/store"
	"github.com/54b3r/docq-go/internal/tracing"
)

// NewServeCmd constructs the `docq serve` command, which starts the HTTP
// server exposing the query, search, ingest, and admin endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docq HTTP server",
		Long: `Start the docq HTTP server on localhost.

The server exposes a REST/SSE API: POST /api/query (optionally streaming),
POST /api/search, POST /api/ingest, GET /api/status, GET /api/documents,
and POST /api/reset, plus /api/health, /api/ready, and /metrics.

Set DOCQ_API_KEY to require Bearer authentication on the API routes.

Examples:
  docq serve
  docq serve --port 9090
  MODEL_PROVIDER=azure docq serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			providerName := getEnvOrDefault("MODEL_PROVIDER", "ollama")
			log.Info("serve starting", slog.String("provider", providerName))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", providerName))

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			vectorStore, err := buildStore()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer vectorStore.Close()

			// An unreachable Qdrant is reported via /api/status and /api/ready
			// rather than preventing startup.
			if err := vectorStore.EnsureCollection(ctx); err != nil {
				log.Warn("serve: could not ensure collection at startup", slog.Any("error", err))
			}

			retriever, err := rag.NewRetriever(emb, vectorStore, getEnvInt("RETRIEVAL_TOP_K", 5))
			if err != nil {
				return fmt.Errorf("serve: failed to create retriever: %w", err)
			}

			qa, err := pipeline.New(&pipeline.Config{
				Retriever: retriever,
				ChatModel: chatModel,
				TopK:      getEnvInt("RETRIEVAL_TOP_K", 5),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			ingester, err := ingestion.NewPipeline(emb, vectorStore, &ingestion.Config{
				WindowSize: getEnvInt("CHUNK_WINDOW_SIZE", 0),
				Overlap:    chunkOverlap(),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			// Open conversation history store. DOCQ_HISTORY_DB overrides the
			// default path (~/.docq/history.db). Set to "disabled" to turn off.
			var historyStore store.ConversationStore
			if hs := openHistory(log); hs != nil {
				historyStore = hs
				defer func() { _ = hs.Close() }()
			}

			llmPinger := server.NewLLMPinger(chatModel, providerName)
			pingers := []server.Pinger{
				server.NewStorePinger(vectorStore),
				llmPinger,
			}

			srv, err := server.New(&server.Deps{
				Pipeline:       qa,
				Retriever:      retriever,
				Ingester:       ingester,
				Store:          vectorStore,
				History:        historyStore,
				LLM:            llmPinger,
				ChatModel:      provider.ModelNameFromEnv(),
				EmbeddingModel: embedder.ModelNameFromEnv(),
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCQ_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
