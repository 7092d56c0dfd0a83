// Package embed provides pluggable text-embedding providers for the vector
// index: a deterministic hash fallback, OpenAI, and Ollama, plus an LRU
// caching wrapper.
package embed

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Provider converts text into a fixed-dimension float vector. Availability
// is an explicit capability: callers branch on Available() instead of
// probing with a call that may fail.
type Provider interface {
	Name() string
	Model() string
	Dim() int
	Available() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrUnavailable is returned by providers that are configured but cannot
// currently produce embeddings.
var ErrUnavailable = errors.New("embedding provider unavailable")

// ContentHash returns a short SHA-256 hex digest of text, used as cache key.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}
