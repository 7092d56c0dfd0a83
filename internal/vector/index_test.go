package vector

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppendAndLen(t *testing.T) {
	x := New(3)
	if err := x.Append(1, []float32{1, 0, 0}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := x.Append(2, []float32{0, 1, 0}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if x.Len() != 2 {
		t.Errorf("len = %d", x.Len())
	}
	if ids := x.IDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ids = %v", ids)
	}
}

func TestAppendRejectsWrongDim(t *testing.T) {
	x := New(3)
	if err := x.Append(1, []float32{1, 0}); err == nil {
		t.Fatal("expected error for short vector")
	}
	if x.Len() != 0 {
		t.Errorf("rejected vector was stored, len = %d", x.Len())
	}
}

func TestSearchTopK(t *testing.T) {
	x := New(3)
	x.Append(1, []float32{1, 0, 0})
	x.Append(2, []float32{0, 1, 0})
	x.Append(3, []float32{0.9, 0.1, 0})

	results := x.Search([]float32{1, 0, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 {
		t.Errorf("expected exact match first, got id %d", results[0].ID)
	}
	if results[1].ID != 3 {
		t.Errorf("expected near match second, got id %d", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %f, %f", results[0].Score, results[1].Score)
	}
}

func TestSearchEdgeCases(t *testing.T) {
	x := New(3)
	x.Append(1, []float32{1, 0, 0})

	if got := x.Search([]float32{1, 0}, 5); got != nil {
		t.Errorf("wrong-dim query should return nil, got %v", got)
	}
	if got := x.Search([]float32{1, 0, 0}, 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
	// k larger than the index is clamped
	if got := x.Search([]float32{1, 0, 0}, 10); len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}
}

func TestReset(t *testing.T) {
	x := New(3)
	x.Append(1, []float32{1, 0, 0})
	x.Reset()
	if x.Len() != 0 {
		t.Errorf("len after reset = %d", x.Len())
	}
	if x.Dim() != 3 {
		t.Errorf("dim lost on reset: %d", x.Dim())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")

	x := New(3)
	x.Append(10, []float32{1, 0, 0})
	x.Append(20, []float32{0, 1, 0})
	if err := x.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := Load(path, 3, testLogger())
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d vectors", loaded.Len())
	}
	if ids := loaded.IDs(); ids[0] != 10 || ids[1] != 20 {
		t.Errorf("ids = %v", ids)
	}

	results := loaded.Search([]float32{0, 1, 0}, 1)
	if len(results) != 1 || results[0].ID != 20 {
		t.Errorf("loaded index not searchable: %+v", results)
	}
}

func TestLoadMissingFile(t *testing.T) {
	x := Load(filepath.Join(t.TempDir(), "absent.gob"), 3, testLogger())
	if x.Len() != 0 || x.Dim() != 3 {
		t.Errorf("expected empty index, got len=%d dim=%d", x.Len(), x.Dim())
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	x := Load(path, 3, testLogger())
	if x.Len() != 0 {
		t.Errorf("corrupt snapshot should load empty, got %d", x.Len())
	}
}

func TestLoadDimMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.gob")

	x := New(4)
	x.Append(1, []float32{1, 0, 0, 0})
	if err := x.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := Load(path, 8, testLogger())
	if loaded.Len() != 0 {
		t.Errorf("mismatched snapshot should load empty, got %d", loaded.Len())
	}
	if loaded.Dim() != 8 {
		t.Errorf("loaded dim = %d", loaded.Dim())
	}
}
