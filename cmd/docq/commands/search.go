package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewSearchCmd constructs the `docq search` command: retrieval without
// generation, useful for inspecting what the pipeline would ground on.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the indexed documents without generating an answer",
		Long: `Search the document collection by semantic similarity and print the
matching chunks with their sources and scores. No LLM is involved — only the
embedder and the vector store.

Examples:
  docq search "retry policy"
  docq search --top-k 10 "database migrations"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			retriever, _, closeStore, err := buildRetriever(slog.Default())
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer closeStore()

			docs, err := retriever.Retrieve(ctx, args[0], topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(docs) == 0 {
				fmt.Println("No matching documents found.")
				return nil
			}

			for i, d := range docs {
				fmt.Printf("%d. %s (score %.3f)\n", i+1, d.Source, d.Score)
				fmt.Printf("   %s\n\n", d.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (default from config)")

	return cmd
}
