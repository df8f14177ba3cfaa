package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewAskCmd constructs the `docq ask` command, which answers a single
// question from the indexed documents and prints the result to stdout.
func NewAskCmd() *cobra.Command {
	var topK int
	var stream bool
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the indexed documents",
		Long: `Ask a natural language question about the indexed document collection.

The answer is grounded in the most relevant document chunks and ends with the
list of sources it was drawn from. If nothing relevant is indexed, docq says
so instead of guessing.

Examples:
  docq ask "what does the architecture doc say about retries?"
  docq ask --top-k 10 "summarise the onboarding guide"
  docq ask --no-stream --sources=false "who owns the billing service?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			qa, _, closeStore, err := buildQAPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			question := args[0]

			if !stream {
				ans, err := qa.Answer(ctx, question, topK, nil)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				fmt.Println(ans.Text)
				if showSources {
					printSources(ans.Sources)
				}
				return nil
			}

			events, err := qa.AnswerStream(ctx, question, topK, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			var sources []string
			for ev := range events {
				switch {
				case ev.Err != nil:
					fmt.Println()
					return fmt.Errorf("ask: %w", ev.Err)
				case ev.Done:
					sources = ev.Sources
				default:
					fmt.Print(ev.Token)
				}
			}
			fmt.Println()

			if showSources {
				printSources(sources)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of document chunks to retrieve (default from config)")
	cmd.Flags().BoolVar(&stream, "stream", true, "Stream the answer token by token (--stream=false waits for the full answer)")
	cmd.Flags().BoolVar(&showSources, "sources", true, "Print the source documents after the answer")

	return cmd
}

// printSources prints the source attribution block to stdout.
func printSources(sources []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(os.Stdout, "\nSources:")
	for _, src := range sources {
		fmt.Fprintf(os.Stdout, "  - %s\n", src)
	}
}
