// Package config loads chatvault configuration from YAML or JSON5 and
// resolves per-user data directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration. Every field has a default, so a
// missing config file is not an error.
type Config struct {
	// DataDir holds history.db, vectors.gob, and exports/.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// ImportDir is scanned (or watched) for session JSON bundles.
	ImportDir string `yaml:"import_dir" json:"import_dir"`

	Vector struct {
		Dim int `yaml:"dim" json:"dim"`
	} `yaml:"vector" json:"vector"`

	Embedding struct {
		// Provider: "hash" (default), "openai", "ollama", or "none".
		Provider   string `yaml:"provider" json:"provider"`
		Model      string `yaml:"model" json:"model"`
		OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
		CacheSize  int    `yaml:"cache_size" json:"cache_size"`
	} `yaml:"embedding" json:"embedding"`

	Persist struct {
		// Schedule is an optional cron expression for periodic snapshot
		// safety flushes, e.g. "*/5 * * * *".
		Schedule string `yaml:"schedule" json:"schedule"`
	} `yaml:"persist" json:"persist"`

	Tracing struct {
		Endpoint string `yaml:"endpoint" json:"endpoint"` // OTLP endpoint, "" disables
		Protocol string `yaml:"protocol" json:"protocol"` // "grpc" (default) or "http"
		Insecure bool   `yaml:"insecure" json:"insecure"`
	} `yaml:"tracing" json:"tracing"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config at path. A missing file yields the defaults.
// ".json"/".json5" files are parsed as JSON5, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if c.ImportDir == "" {
		c.ImportDir = filepath.Join(c.DataDir, "import")
	}
	if c.Vector.Dim <= 0 {
		c.Vector.Dim = 384
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hash"
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = 4096
	}
	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = "grpc"
	}
}

// ExportDir is where transcripts and JSON bundles are written.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// defaultDataDir resolves the per-user application data directory, with a
// relative-path fallback when the platform dir cannot be determined.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".chatvault"
	}
	return filepath.Join(base, "chatvault")
}
