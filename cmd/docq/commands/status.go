package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/docq-go/internal/embedder"
	"github.com/54b3r/docq-go/internal/provider"
	"github.com/54b3r/docq-go/internal/server"
)

// NewStatusCmd constructs the `docq status` command, which reports vector
// store and chat backend reachability, the indexed chunk count, and the
// configured model names.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend connectivity, document count, and configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := buildStore()
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			defer store.Close()

			fmt.Printf("Collection:      %s\n", store.Collection())

			if err := store.Ping(ctx); err != nil {
				fmt.Printf("Vector store:    unreachable (%v)\n", err)
			} else if count, err := store.Count(ctx); err != nil {
				fmt.Printf("Vector store:    unreachable (%v)\n", err)
			} else {
				fmt.Println("Vector store:    ok")
				fmt.Printf("Chunks:          %d\n", count)
			}

			providerName := getEnvOrDefault("MODEL_PROVIDER", "ollama")
			if chatModel, err := provider.NewFromEnv(ctx); err != nil {
				fmt.Printf("LLM (%s):    unreachable (%v)\n", providerName, err)
			} else if err := server.NewLLMPinger(chatModel, providerName).Ping(ctx); err != nil {
				fmt.Printf("LLM (%s):    unreachable (%v)\n", providerName, err)
			} else {
				fmt.Printf("LLM (%s):    ok\n", providerName)
			}

			fmt.Printf("Chat model:      %s\n", provider.ModelNameFromEnv())
			fmt.Printf("Embedding model: %s\n", embedder.ModelNameFromEnv())
			return nil
		},
	}

	return cmd
}
