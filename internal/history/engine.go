package history

import (
	"context"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/user/chatvault/internal/embed"
	"github.com/user/chatvault/internal/persist"
	"github.com/user/chatvault/internal/vector"
)

// Engine is the outbound API of the storage and search subsystem. It owns
// the relational store, the vector index, and the persistence scheduler,
// and converts internal errors into the bool/empty-result shapes the
// callers (CLI, MCP surface, importers) expect. Absence of data is
// therefore ambiguous between "no match" and "storage error"; the log
// carries the distinction.
type Engine struct {
	store     *SQLiteStore
	vectors   *vector.Index
	provider  embed.Provider
	persister *persist.Scheduler
	search    *Coordinator

	snapshotPath string
	tracer       trace.Tracer
	log          *slog.Logger
}

// Options configures an Engine.
type Options struct {
	DataDir         string
	VectorDim       int            // default embed.DefaultDim
	Provider        embed.Provider // nil disables vector indexing
	PersistSchedule string         // optional cron expression for safety flushes
	Logger          *slog.Logger
	Tracer          trace.Tracer // nil means no-op
}

// New opens the engine: relational store, vector snapshot, scheduler. A
// provider whose dimensionality does not match the index is rejected
// (vector indexing disabled) rather than silently producing bad vectors.
func New(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("chatvault")
	}
	dim := opts.VectorDim
	if dim <= 0 {
		dim = embed.DefaultDim
	}

	store, err := OpenSQLiteStore(filepath.Join(opts.DataDir, "history.db"), log)
	if err != nil {
		return nil, err
	}

	snapshotPath := filepath.Join(opts.DataDir, "vectors.gob")
	vectors := vector.Load(snapshotPath, dim, log)

	provider := opts.Provider
	if provider != nil && provider.Dim() != dim {
		log.Warn("embedding provider dimensionality mismatch, vector indexing disabled",
			"provider", provider.Name(), "provider_dim", provider.Dim(), "index_dim", dim)
		provider = nil
	}
	if provider == nil || !provider.Available() {
		log.Info("vectors unavailable, ingestion continues without semantic indexing")
	}

	e := &Engine{
		store:        store,
		vectors:      vectors,
		provider:     provider,
		snapshotPath: snapshotPath,
		tracer:       tracer,
		log:          log,
	}
	e.persister = persist.New(e.persistVectors, opts.PersistSchedule, log)
	e.persister.Start()
	e.search = NewCoordinator(store, vectors, provider, log)

	return e, nil
}

// AddSession creates or updates a session. Idempotent: repeated calls with
// the same id merge metadata without touching counters.
func (e *Engine) AddSession(sessionID string, metadata map[string]any) bool {
	if err := e.store.UpsertSession(sessionID, metadata); err != nil {
		e.log.Error("add session failed", "session", sessionID, "error", err)
		return false
	}
	return true
}

// AddMessage durably stores a message (auto-creating its session), then
// best-effort indexes it in the vector index. Vector failures never fail
// the durable write. Returns the assigned message id and success.
func (e *Engine) AddMessage(ctx context.Context, m Message) (int64, bool) {
	ctx, span := e.tracer.Start(ctx, "history.AddMessage",
		trace.WithAttributes(attribute.String("session_id", m.SessionID)))
	defer span.End()

	id, err := e.store.InsertMessage(m)
	if err != nil {
		e.log.Error("add message failed", "session", m.SessionID, "error", err)
		return 0, false
	}

	e.indexVector(ctx, id, m.Content)
	return id, true
}

// indexVector embeds content and appends to the vector index, scheduling a
// snapshot persist. Every failure path is a logged no-op.
func (e *Engine) indexVector(ctx context.Context, id int64, content string) {
	if e.provider == nil || !e.provider.Available() {
		return
	}

	vec, err := e.provider.Embed(ctx, content)
	if err != nil {
		e.log.Debug("embedding failed, message not vector-indexed", "id", id, "error", err)
		return
	}
	if err := e.vectors.Append(id, vec); err != nil {
		e.log.Warn("vector append rejected", "id", id, "error", err)
		return
	}
	e.persister.Request()
}

// SearchMessages runs a predicate search; an empty result may mean either
// no match or a logged storage error.
func (e *Engine) SearchMessages(ctx context.Context, opts SearchOptions) []Message {
	ctx, span := e.tracer.Start(ctx, "history.SearchMessages")
	defer span.End()

	msgs, err := e.search.Search(ctx, opts)
	if err != nil {
		e.log.Error("search failed", "error", err)
		return nil
	}
	return msgs
}

// SemanticSearch returns the k messages most similar to text, or nil when
// the vector capability is unavailable.
func (e *Engine) SemanticSearch(ctx context.Context, text string, k int) []ScoredMessage {
	ctx, span := e.tracer.Start(ctx, "history.SemanticSearch")
	defer span.End()

	hits, err := e.search.SemanticSearch(ctx, text, k)
	if err != nil {
		e.log.Warn("semantic search failed", "error", err)
		return nil
	}
	return hits
}

// GetSessions lists sessions, newest-first.
func (e *Engine) GetSessions(limit int) []Session {
	sessions, err := e.store.Sessions(limit)
	if err != nil {
		e.log.Error("list sessions failed", "error", err)
		return nil
	}
	return sessions
}

// GetSession returns one session, or nil if absent (or on storage error).
func (e *Engine) GetSession(sessionID string) *Session {
	sess, err := e.store.Session(sessionID)
	if err != nil {
		return nil
	}
	return sess
}

// GetSessionMessages returns all messages of a session, newest-first.
func (e *Engine) GetSessionMessages(sessionID string) []Message {
	msgs, err := e.store.SessionMessages(sessionID)
	if err != nil {
		e.log.Error("session messages failed", "session", sessionID, "error", err)
		return nil
	}
	return msgs
}

// RebuildVectorIndex re-embeds every stored message and rewrites the
// snapshot. This is the recovery path for snapshot loss or for enabling
// embeddings after the fact. Returns the number of indexed messages.
func (e *Engine) RebuildVectorIndex(ctx context.Context) (int, error) {
	ctx, span := e.tracer.Start(ctx, "history.RebuildVectorIndex")
	defer span.End()

	if e.provider == nil || !e.provider.Available() {
		return 0, embed.ErrUnavailable
	}

	e.vectors.Reset()

	var indexed int
	var afterID int64
	for {
		batch, err := e.store.MessagesBatch(afterID, 500)
		if err != nil {
			return indexed, err
		}
		if len(batch) == 0 {
			break
		}
		for _, m := range batch {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			afterID = m.ID
			vec, err := e.provider.Embed(ctx, m.Content)
			if err != nil {
				e.log.Debug("rebuild: embedding failed, skipping", "id", m.ID, "error", err)
				continue
			}
			if err := e.vectors.Append(m.ID, vec); err != nil {
				e.log.Warn("rebuild: vector append rejected", "id", m.ID, "error", err)
				continue
			}
			indexed++
		}
	}

	if err := e.persistVectors(); err != nil {
		return indexed, err
	}
	e.log.Info("vector index rebuilt", "messages", indexed)
	return indexed, nil
}

// Stats describes the engine's durable and derived state, for diagnostics.
type Stats struct {
	Messages      int  `json:"messages"`
	FTSRows       int  `json:"fts_rows"`
	Vectors       int  `json:"vectors"`
	VectorDim     int  `json:"vector_dim"`
	VectorsOnline bool `json:"vectors_online"`
}

// Stats reports row counts and index state.
func (e *Engine) Stats() (Stats, error) {
	messages, ftsRows, err := e.store.Counts()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Messages:      messages,
		FTSRows:       ftsRows,
		Vectors:       e.vectors.Len(),
		VectorDim:     e.vectors.Dim(),
		VectorsOnline: e.provider != nil && e.provider.Available(),
	}, nil
}

func (e *Engine) persistVectors() error {
	return e.vectors.Save(e.snapshotPath)
}

// Close stops the persistence scheduler (flushing a final snapshot) and
// closes the store.
func (e *Engine) Close() error {
	e.persister.Stop()
	return e.store.Close()
}
