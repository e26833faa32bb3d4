package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopProviderEmbed(t *testing.T) {
	p := NewNoopProvider(768)

	vec, err := p.Embed(context.Background(), "any text at all")
	require.NoError(t, err)
	assert.Len(t, vec, 768)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestNoopProviderEmbedBatch(t *testing.T) {
	p := NewNoopProvider(768)

	// Batch deliberately yields nothing rather than N zero vectors so
	// bulk pipelines skip persistence entirely when disabled.
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.NotNil(t, vecs)
}

func TestNoopProviderUnavailable(t *testing.T) {
	p := NewNoopProvider(768)

	assert.False(t, p.Available(context.Background()))
	assert.Equal(t, "none", p.Name())
	assert.Equal(t, "none", p.ModelName())
	assert.Equal(t, 768, p.Dimensions())
	assert.NoError(t, p.Close())
}

func TestNoopProviderDefaultDimensions(t *testing.T) {
	for _, dims := range []int{0, -5} {
		p := NewNoopProvider(dims)
		assert.Equal(t, DefaultDimensions, p.Dimensions())
	}
}
