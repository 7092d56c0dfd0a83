package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.DataDir == "" {
		t.Error("empty data dir")
	}
	if cfg.ImportDir != filepath.Join(cfg.DataDir, "import") {
		t.Errorf("import dir = %q", cfg.ImportDir)
	}
	if cfg.Vector.Dim != 384 {
		t.Errorf("vector dim = %d", cfg.Vector.Dim)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize != 4096 {
		t.Errorf("cache size = %d", cfg.Embedding.CacheSize)
	}
	if cfg.Tracing.Protocol != "grpc" {
		t.Errorf("tracing protocol = %q", cfg.Tracing.Protocol)
	}
	if cfg.ExportDir() != filepath.Join(cfg.DataDir, "exports") {
		t.Errorf("export dir = %q", cfg.ExportDir())
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /tmp/vault
vector:
  dim: 768
embedding:
  provider: ollama
  model: nomic-embed-text
persist:
  schedule: "*/5 * * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/vault" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Vector.Dim != 768 {
		t.Errorf("dim = %d", cfg.Vector.Dim)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Persist.Schedule != "*/5 * * * *" {
		t.Errorf("schedule = %q", cfg.Persist.Schedule)
	}
	// unset fields still take defaults
	if cfg.ImportDir != filepath.Join("/tmp/vault", "import") {
		t.Errorf("import dir = %q", cfg.ImportDir)
	}
}

func TestLoadJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	content := `{
	// comments are fine in json5
	data_dir: "/tmp/vault5",
	embedding: { provider: "none" },
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/vault5" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.Embedding.Provider != "none" {
		t.Errorf("provider = %q", cfg.Embedding.Provider)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNormalizeSessionID(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"alpha", "alpha"},
		{"Alpha Beta", "alpha-beta"},
		{"  spaced  ", "spaced"},
		{"weird!!chars##here", "weird-chars-here"},
		{"--leading-and-trailing--", "leading-and-trailing"},
		{"UPPER_case-123", "upper_case-123"},
		{"", "default"},
		{"!!!", "default"},
	}
	for _, tc := range cases {
		if got := NormalizeSessionID(tc.in); got != tc.want {
			t.Errorf("NormalizeSessionID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
