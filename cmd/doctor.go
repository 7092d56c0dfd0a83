package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check storage and index health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("chatvault doctor")
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:    %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg := loadConfig()
	fmt.Printf("  Data dir:  %s\n", cfg.DataDir)

	dbPath := filepath.Join(cfg.DataDir, "history.db")
	checkFile("Database", dbPath)
	checkFile("Snapshot", filepath.Join(cfg.DataDir, "vectors.gob"))
	fmt.Println()

	eng, _, shutdown := mustOpenEngine()
	defer shutdown()

	stats, err := eng.Stats()
	if err != nil {
		fmt.Printf("  Stats error: %s\n", err)
		return
	}

	fmt.Printf("  Messages:  %d\n", stats.Messages)
	fmt.Printf("  FTS rows:  %d", stats.FTSRows)
	if stats.FTSRows == stats.Messages {
		fmt.Println(" (in sync)")
	} else {
		fmt.Println(" (MISMATCH: full-text mirror out of sync, run a fresh import)")
	}

	fmt.Printf("  Vectors:   %d of %d messages (dim %d)", stats.Vectors, stats.Messages, stats.VectorDim)
	switch {
	case !stats.VectorsOnline:
		fmt.Println(" (embedding provider offline)")
	case stats.Vectors < stats.Messages:
		fmt.Println(" (partial: run `chatvault reindex`)")
	default:
		fmt.Println(" (OK)")
	}
	fmt.Printf("  Embedding: %s\n", cfg.Embedding.Provider)
}

func checkFile(label, path string) {
	fmt.Printf("  %s:  %s", label, path)
	if info, err := os.Stat(path); err != nil {
		fmt.Println(" (not found)")
	} else {
		fmt.Printf(" (%d bytes)\n", info.Size())
	}
}
