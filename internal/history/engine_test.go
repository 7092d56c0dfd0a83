package history

import (
	"context"
	"testing"

	"github.com/user/chatvault/internal/embed"
)

func TestEngineAddSearchAndStats(t *testing.T) {
	dir := t.TempDir()
	eng, err := New(Options{
		DataDir:   dir,
		VectorDim: 64,
		Provider:  embed.NewHashProvider(64),
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()

	id, ok := eng.AddMessage(ctx, Message{SessionID: "alpha", Sender: "user", Content: "first note about deploys"})
	if !ok || id <= 0 {
		t.Fatalf("add message: ok=%v id=%d", ok, id)
	}
	if _, ok := eng.AddMessage(ctx, Message{SessionID: "alpha", Sender: "agent", Content: "second note about databases"}); !ok {
		t.Fatal("second add failed")
	}

	if msgs := eng.SearchMessages(ctx, SearchOptions{Query: "deploys"}); len(msgs) != 1 {
		t.Errorf("text search: expected 1 hit, got %d", len(msgs))
	}
	if hits := eng.SemanticSearch(ctx, "first note about deploys", 1); len(hits) != 1 {
		t.Errorf("semantic search: expected 1 hit, got %d", len(hits))
	}

	stats, err := eng.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Messages != 2 || stats.FTSRows != 2 || stats.Vectors != 2 {
		t.Errorf("stats out of sync: %+v", stats)
	}
	if !stats.VectorsOnline {
		t.Error("expected vectors online")
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reopen: snapshot written on Close must come back
	eng2, err := New(Options{DataDir: dir, VectorDim: 64, Provider: embed.NewHashProvider(64), Logger: testLogger()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer eng2.Close()

	stats, err = eng2.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Vectors != 2 {
		t.Errorf("snapshot not restored: %d vectors", stats.Vectors)
	}
}

func TestEngineWithoutProvider(t *testing.T) {
	eng, err := New(Options{DataDir: t.TempDir(), VectorDim: 64, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer eng.Close()
	ctx := context.Background()

	// ingestion and text search keep working without embeddings
	if _, ok := eng.AddMessage(ctx, Message{SessionID: "alpha", Sender: "user", Content: "still stored"}); !ok {
		t.Fatal("add message failed")
	}
	if msgs := eng.SearchMessages(ctx, SearchOptions{Query: "stored"}); len(msgs) != 1 {
		t.Errorf("expected 1 hit, got %d", len(msgs))
	}
	if hits := eng.SemanticSearch(ctx, "still stored", 5); hits != nil {
		t.Errorf("expected nil semantic result, got %d hits", len(hits))
	}

	stats, err := eng.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Vectors != 0 || stats.VectorsOnline {
		t.Errorf("expected offline empty index, got %+v", stats)
	}
}

func TestEngineRejectsDimMismatchedProvider(t *testing.T) {
	eng, err := New(Options{
		DataDir:   t.TempDir(),
		VectorDim: 64,
		Provider:  embed.NewHashProvider(16),
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer eng.Close()

	if _, ok := eng.AddMessage(context.Background(), Message{SessionID: "alpha", Sender: "user", Content: "hi"}); !ok {
		t.Fatal("add message failed")
	}
	stats, err := eng.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Vectors != 0 || stats.VectorsOnline {
		t.Errorf("mismatched provider not disabled: %+v", stats)
	}
}

func TestRebuildVectorIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// ingest without embeddings
	eng, err := New(Options{DataDir: dir, VectorDim: 64, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for _, content := range []string{"one", "two", "three"} {
		if _, ok := eng.AddMessage(ctx, Message{SessionID: "alpha", Sender: "user", Content: content}); !ok {
			t.Fatalf("add %q failed", content)
		}
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// enable embeddings after the fact and rebuild
	eng2, err := New(Options{DataDir: dir, VectorDim: 64, Provider: embed.NewHashProvider(64), Logger: testLogger()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer eng2.Close()

	n, err := eng2.RebuildVectorIndex(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 indexed, got %d", n)
	}
	if hits := eng2.SemanticSearch(ctx, "two", 1); len(hits) != 1 || hits[0].Content != "two" {
		t.Errorf("rebuild not searchable: %+v", hits)
	}
}
