package embed

import (
	"context"
	"math"
)

// DefaultDim is the engine's default vector dimensionality.
const DefaultDim = 384

// HashProvider is a deterministic fallback embedder: it folds the UTF-8
// bytes of the text into a fixed-size vector and L2-normalizes it. The same
// input always yields the same vector, which makes it suitable for tests
// and fully offline operation. It has no semantic power beyond surface
// similarity of byte patterns.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a hash embedder with the given dimensionality
// (DefaultDim when dim <= 0).
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashProvider{dim: dim}
}

func (p *HashProvider) Name() string    { return "hash" }
func (p *HashProvider) Model() string   { return "byte-fold" }
func (p *HashProvider) Dim() int        { return p.dim }
func (p *HashProvider) Available() bool { return true }

func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dim)
	for i, ch := range []byte(text) {
		vec[i%p.dim] += float32(ch) / 255.0
	}
	normalize(vec)
	return vec, nil
}

// normalize scales vec to unit length in place, so inner-product search
// behaves as cosine similarity. A zero vector is left untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
