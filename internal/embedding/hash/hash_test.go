package hash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderRejectsBadDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.Error(t, err)
	_, err = NewEmbedder(-5)
	assert.Error(t, err)
}

func TestEmbedDimensionAndDeterminism(t *testing.T) {
	e, err := NewEmbedder(384)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := e.Embed(ctx, "a cozy mystery by the sea")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "a cozy mystery by the sea")
	require.NoError(t, err)

	assert.Len(t, a, 384)
	assert.Equal(t, a, b)
}

func TestEmbedIsL2Normalized(t *testing.T) {
	e, err := NewEmbedder(128)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "dragons and ancient magic")
	require.NoError(t, err)

	norm := 0.0
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatchMatchesSingle(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	ctx := context.Background()

	texts := []string{"space opera", "cozy mystery"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestSharedTokensYieldPositiveSimilarity(t *testing.T) {
	e, err := NewEmbedder(384)
	require.NoError(t, err)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "murder mystery village")
	b, _ := e.Embed(ctx, "mystery novel")
	c, _ := e.Embed(ctx, "spaceship engineering manual")

	assert.Greater(t, dot(a, b), dot(a, c))
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestEmbedderMetadata(t *testing.T) {
	e, err := NewEmbedder(384)
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Name())
	assert.Equal(t, 384, e.Dimension())
}
