package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/chatvault/internal/embed"
	"github.com/user/chatvault/internal/vector"
)

// Coordinator composes filter predicates against the relational store and
// exposes the parallel vector capability. The text query and the semantic
// query are deliberately independent entry points so a blended ranking
// (FTS hits re-ranked by vector similarity) can slot in later without
// changing the store contract.
type Coordinator struct {
	store    *SQLiteStore
	vectors  *vector.Index
	provider embed.Provider
	log      *slog.Logger
}

// NewCoordinator wires the search surface. vectors and provider may be nil;
// SemanticSearch then reports the capability as missing.
func NewCoordinator(store *SQLiteStore, vectors *vector.Index, provider embed.Provider, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{store: store, vectors: vectors, provider: provider, log: log}
}

// Search runs the AND-composed predicate query. Date-only bounds are
// widened so that EndDate includes the whole day.
func (c *Coordinator) Search(_ context.Context, opts SearchOptions) ([]Message, error) {
	opts.StartDate = normalizeLowerBound(opts.StartDate)
	opts.EndDate = normalizeUpperBound(opts.EndDate)
	return c.store.SearchMessages(opts)
}

// SemanticSearch embeds the query text, finds the nearest message vectors,
// and resolves the ids back to messages. Results keep similarity order.
func (c *Coordinator) SemanticSearch(ctx context.Context, text string, k int) ([]ScoredMessage, error) {
	if c.vectors == nil || c.provider == nil || !c.provider.Available() {
		return nil, fmt.Errorf("semantic search: %w", embed.ErrUnavailable)
	}
	if k <= 0 {
		k = 10
	}

	queryVec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits := c.vectors.Search(queryVec, k)
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(hits))
	scores := make(map[int64]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}

	msgs, err := c.store.MessagesByID(ids)
	if err != nil {
		return nil, fmt.Errorf("resolve hits: %w", err)
	}

	out := make([]ScoredMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ScoredMessage{Message: m, Score: scores[m.ID]}
	}
	return out, nil
}

// normalizeLowerBound leaves date-only strings alone: "2026-01-02" already
// sorts before any RFC3339 timestamp of that day.
func normalizeLowerBound(s string) string {
	return s
}

// normalizeUpperBound widens a date-only string ("2026-01-02") so the bound
// includes the whole day under lexicographic comparison.
func normalizeUpperBound(s string) string {
	if len(s) == len("2006-01-02") {
		return s + "T23:59:59Z"
	}
	return s
}
