package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	dim   int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	vec := make([]float32, c.dim)
	for i := range vec {
		vec[i] = float32(len(text))
	}
	return vec, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, _ := c.Embed(ctx, t)
		out[i] = vec
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int              { return c.dim }
func (c *countingEmbedder) ModelName() string            { return "counting" }
func (c *countingEmbedder) Available(context.Context) bool { return true }
func (c *countingEmbedder) Close() error                 { return nil }

func TestCachedEmbedder_CachesRepeatedQueries(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10)

	_, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_DifferentTextsBothMiss(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10)

	_, err := cached.Embed(context.Background(), "a")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_EmbedBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, 10)

	_, err := cached.Embed(context.Background(), "cached")
	require.NoError(t, err)
	inner.calls = 0

	results, err := cached.EmbedBatch(context.Background(), []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_PassesThroughMetadata(t *testing.T) {
	inner := &countingEmbedder{dim: 8}
	cached := NewCachedEmbedder(inner, 10)

	assert.Equal(t, 8, cached.Dimensions())
	assert.Equal(t, "counting", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())
}
