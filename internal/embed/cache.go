package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a Provider with an in-memory LRU keyed by content hash, so
// identical texts (re-imports, rebuilds) are embedded only once per process.
type Cached struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU of the given size (default 4096).
func NewCached(inner Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string    { return c.inner.Name() }
func (c *Cached) Model() string   { return c.inner.Model() }
func (c *Cached) Dim() int        { return c.inner.Dim() }
func (c *Cached) Available() bool { return c.inner.Available() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := ContentHash(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}
