// Package embedder provides the embedding provider abstraction the search
// pipeline calls to turn query/chunk text into vectors. Three
// implementations mirror the teacher's embed package: a dependency-free
// StaticEmbedder for tests and offline use, a RemoteEmbedder that talks to
// an HTTP embedding service with circuit-breaker/retry protection, and a
// CachedEmbedder decorator.
package embedder

import (
	"context"

	"github.com/vectordb/vectordb/internal/vecmath"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector scales v to unit length, leaving zero vectors untouched.
func normalizeVector(v []float32) []float32 {
	norm := vecmath.Norm(v)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}
