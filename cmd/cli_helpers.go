package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/user/chatvault/internal/bundle"
	"github.com/user/chatvault/internal/config"
	"github.com/user/chatvault/internal/embed"
	"github.com/user/chatvault/internal/history"
	"github.com/user/chatvault/internal/tracing"
)

// resolveConfigPath honors --config, then $CHATVAULT_CONFIG, then the
// platform config directory.
func resolveConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if p := os.Getenv("CHATVAULT_CONFIG"); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "chatvault.yaml"
	}
	return filepath.Join(base, "chatvault", "config.yaml")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEngine wires config, embedding provider, tracing, and the engine.
// The returned shutdown closes the engine and flushes spans.
func openEngine(cfg *config.Config, log *slog.Logger) (*history.Engine, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	provider, err := embed.New(cfg.Embedding.Provider, cfg.Embedding.Model,
		cfg.Embedding.OllamaHost, cfg.Vector.Dim, cfg.Embedding.CacheSize, log)
	if err != nil {
		return nil, nil, err
	}

	tracer, stopTracing, err := tracing.Setup(context.Background(), tracing.Config{
		Endpoint: cfg.Tracing.Endpoint,
		Protocol: cfg.Tracing.Protocol,
		Insecure: cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	eng, err := history.New(history.Options{
		DataDir:         cfg.DataDir,
		VectorDim:       cfg.Vector.Dim,
		Provider:        provider,
		PersistSchedule: cfg.Persist.Schedule,
		Logger:          log,
		Tracer:          tracer,
	})
	if err != nil {
		stopTracing(context.Background())
		return nil, nil, err
	}

	shutdown := func() {
		if err := eng.Close(); err != nil {
			log.Warn("engine close failed", "error", err)
		}
		stopTracing(context.Background())
	}
	return eng, shutdown, nil
}

// mustOpenEngine is openEngine with exit-on-error, for command Run funcs.
func mustOpenEngine() (*history.Engine, *config.Config, func()) {
	cfg := loadConfig()
	log := newLogger()
	eng, shutdown, err := openEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return eng, cfg, shutdown
}

func newManager(eng *history.Engine, cfg *config.Config) *bundle.Manager {
	return bundle.NewManager(eng, cfg.ExportDir(), newLogger())
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
