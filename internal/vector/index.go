// Package vector implements a flat in-memory similarity index over message
// embeddings, with whole-file snapshot persistence.
package vector

import (
	"fmt"
	"sort"
	"sync"
)

// entry pairs a message id with its embedding. Keeping the pair in one
// struct (rather than two parallel slices) makes it impossible for ids and
// vectors to drift apart.
type entry struct {
	ID  int64
	Vec []float32
}

// Result is a single similarity hit.
type Result struct {
	ID    int64
	Score float64
}

// Index is an appendable flat inner-product index. All mutation funnels
// through one mutex; vectors are never modified after Append, so snapshots
// can serialize a shallow copy of the entry slice.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

// New creates an empty index for vectors of the given dimensionality.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Dim returns the configured vector dimensionality.
func (x *Index) Dim() int { return x.dim }

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// IDs returns the message ids in insertion order.
func (x *Index) IDs() []int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]int64, len(x.entries))
	for i, e := range x.entries {
		ids[i] = e.ID
	}
	return ids
}

// Append adds one (id, vector) pair. The append is atomic: a concurrent
// reader sees either both or neither. Vectors of the wrong width are
// rejected.
func (x *Index) Append(id int64, vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector dim %d does not match index dim %d", len(vec), x.dim)
	}
	x.mu.Lock()
	x.entries = append(x.entries, entry{ID: id, Vec: vec})
	x.mu.Unlock()
	return nil
}

// Search returns the top-k entries by inner product with query. With
// normalized vectors this is cosine similarity.
func (x *Index) Search(query []float32, k int) []Result {
	if len(query) != x.dim || k <= 0 {
		return nil
	}

	x.mu.RLock()
	results := make([]Result, 0, len(x.entries))
	for _, e := range x.entries {
		results = append(results, Result{ID: e.ID, Score: innerProduct(query, e.Vec)})
	}
	x.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Reset discards all entries, keeping the dimensionality. Used by the
// rebuild path before replaying the relational store.
func (x *Index) Reset() {
	x.mu.Lock()
	x.entries = nil
	x.mu.Unlock()
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
