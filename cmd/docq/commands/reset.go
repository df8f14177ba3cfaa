package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCmd constructs the `docq reset` command, which deletes every
// indexed chunk from the collection. The --confirm flag is mandatory.
func NewResetCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all indexed documents from the collection",
		Long: `Delete every chunk from the vector store collection. The collection
itself survives, so a subsequent ingest needs no re-initialisation.

This operation is irreversible and therefore requires --confirm.

Examples:
  docq reset --confirm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("reset: this deletes all indexed documents — re-run with --confirm")
			}

			ctx := cmd.Context()

			store, err := buildStore()
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			defer store.Close()

			if err := store.Reset(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}

			fmt.Printf("Collection %q reset.\n", store.Collection())
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the irreversible deletion")

	return cmd
}
