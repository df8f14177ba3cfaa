package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewIngestCmd constructs the `docq ingest` command, which chunks, embeds,
// and indexes local documents into the vector store.
func NewIngestCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a file or directory into the document collection",
		Long: `Index local documents into the Qdrant vector store.

A file is ingested directly; a directory is walked recursively. Supported
formats: .txt, .md, .markdown, .pdf, .docx. Unsupported files in a directory
are skipped; one failing document never aborts the rest of the run.

Relevant environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: docq-documents)
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  CHUNK_WINDOW_SIZE    Chunk window in characters (default: 1000)
  CHUNK_OVERLAP        Chunk overlap in characters (default: 200)

Examples:
  docq ingest ./docs
  docq ingest report.pdf
  docq ingest --reset ./docs
  CHUNK_WINDOW_SIZE=500 docq ingest ./notes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			p, vectorStore, closeStore, err := buildIngestionPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeStore()

			if reset {
				if err := vectorStore.Reset(ctx); err != nil {
					return fmt.Errorf("ingest: reset before ingest failed: %w", err)
				}
				log.Info("collection reset before ingest")
			}

			log.Info("starting ingestion", slog.String("path", args[0]))

			result, err := p.IngestPath(ctx, args[0], func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("Ingested %d document(s), %d chunk(s) created",
				result.DocumentsProcessed, result.ChunksCreated)
			if result.DocumentsFailed > 0 {
				fmt.Printf(", %d failed", result.DocumentsFailed)
			}
			fmt.Println()
			for _, skipped := range result.Skipped {
				fmt.Printf("skipped (unsupported format): %s\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all indexed documents before ingesting")

	return cmd
}
