package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, "hashing-v1", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestEmbed_UnitLengthAndDeterministic(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 64})
	ctx := context.Background()

	a, err := svc.Embed(ctx, "The battery lasts ten hours.")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "The battery lasts ten hours.")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-6)
}

func TestEmbed_OnlyStopwords(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 16})

	vec, err := svc.Embed(context.Background(), "the and of ...")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestEmbed_IdentifierSpellings(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	hyphen, err := svc.Embed(ctx, "XR-200")
	require.NoError(t, err)
	joined, err := svc.Embed(ctx, "xr200")
	require.NoError(t, err)
	wide, err := svc.Embed(ctx, "ＸＲ２００")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dot(hyphen, joined), 1e-6)
	assert.InDelta(t, 1.0, dot(joined, wide), 1e-6)
}

func TestEmbed_RelatedTextScoresHigher(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	vecs, err := svc.EmbedBatch(ctx, []string{
		"warranty battery replacement",
		"The battery warranty covers replacement for two years.",
		"Shipping to Canada takes five business days.",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestEmbedBatch_EmptyAndCancelled(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, []string{"xr200", "laptop", "costs", "1", "299"}, svc.tokenize("The XR-200 laptop costs $1,299"))
	assert.Equal(t, []string{"don't", "panic"}, svc.tokenize("Don't panic"))
}
