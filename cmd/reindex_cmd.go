package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector index from stored messages",
		Long: `Reindex re-embeds every stored message and rewrites the vector
snapshot. Use it after losing the snapshot file, switching embedding
provider, or enabling embeddings on an existing database.`,
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			n, err := eng.RebuildVectorIndex(context.Background())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s (%d messages indexed)\n", err, n)
				os.Exit(1)
			}
			fmt.Printf("Rebuilt vector index: %d message(s)\n", n)
		},
	}
}
