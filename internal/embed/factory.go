package embed

import (
	"fmt"
	"log/slog"
)

// New builds a provider by kind: "hash", "openai", "ollama", or "none"
// (nil provider, vector indexing disabled). Every provider is wrapped with
// the LRU cache unless cacheSize < 0.
func New(kind, model, host string, dim, cacheSize int, log *slog.Logger) (Provider, error) {
	var p Provider
	switch kind {
	case "", "hash":
		p = NewHashProvider(dim)
	case "openai":
		p = NewOpenAIProvider(model, dim, log)
	case "ollama":
		p = NewOllamaProvider(host, model, dim)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", kind)
	}

	if cacheSize < 0 {
		return p, nil
	}
	return NewCached(p, cacheSize)
}
