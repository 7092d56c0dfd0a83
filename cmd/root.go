// Package cmd implements the chatvault command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	flagConfig  string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatvault",
		Short: "Durable chat-history storage with full-text and semantic search",
		Long: `chatvault stores chat sessions and messages in SQLite with a full-text
index, mirrors message embeddings into an in-memory vector index, and
serves keyword, predicate, and semantic searches over them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: platform config dir)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(recordCmd())
	cmd.AddCommand(sessionsCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(reindexCmd())
	cmd.AddCommand(doctorCmd())
	cmd.AddCommand(mcpCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
