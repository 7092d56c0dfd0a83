package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/chatvault/internal/bundle"
)

func importCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import session JSON bundles",
		Long: `Import replays session bundles through the normal ingestion path, so
imported messages are full-text and vector indexed exactly like live
ones. A file argument imports that bundle; a directory argument imports
every *.json inside it; with no argument the configured import directory
is scanned. --watch keeps watching the directory and imports bundles as
they are dropped in.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, cfg, shutdown := mustOpenEngine()
			defer shutdown()
			mgr := newManager(eng, cfg)
			ctx := context.Background()

			path := cfg.ImportDir
			if len(args) == 1 {
				path = args[0]
			}

			info, err := os.Stat(path)
			if err != nil && !watch {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}

			if err == nil && !info.IsDir() {
				if watch {
					fmt.Fprintln(os.Stderr, "Error: --watch needs a directory")
					os.Exit(1)
				}
				if err := mgr.ImportJSON(ctx, path); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				fmt.Printf("Imported %s\n", path)
				return
			}

			if err == nil {
				n := mgr.IndexAllJSONFiles(ctx, path)
				fmt.Printf("Imported %d bundle(s) from %s\n", n, path)
			}

			if !watch {
				return
			}

			w, err := bundle.NewWatcher(mgr, path, newLogger())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if err := w.Start(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer w.Stop()

			fmt.Printf("Watching %s for new bundles (Ctrl-C to stop)\n", path)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching the directory for new bundles")
	return cmd
}
