package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input string
		want  ProviderType
	}{
		{"ollama", ProviderOllama},
		{"OLLAMA", ProviderOllama},
		{"none", ProviderNone},
		{"disabled", ProviderNone},
		{"off", ProviderNone},
		{"  None  ", ProviderNone},
		{"something-else", ProviderOllama},
		{"", ProviderOllama},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseProvider(tt.input), "input %q", tt.input)
	}
}

func TestNewProviderNone(t *testing.T) {
	p, err := NewProvider(context.Background(), FactoryConfig{
		Provider:   ProviderNone,
		Dimensions: 256,
		CacheSize:  -1,
	})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "none", p.Name())
	assert.Equal(t, 256, p.Dimensions())
	assert.False(t, p.Available(context.Background()))
}

func TestNewProviderNoneIsCacheWrapped(t *testing.T) {
	p, err := NewProvider(context.Background(), FactoryConfig{Provider: ProviderNone})
	require.NoError(t, err)
	defer p.Close()

	cached, ok := p.(*CachedProvider)
	require.True(t, ok, "default config should wrap the provider in a cache")
	assert.Equal(t, "none", cached.Inner().Name())
}

func TestNewProviderEnvOverride(t *testing.T) {
	t.Setenv("KBSEARCH_PROVIDER", "none")

	p, err := NewProvider(context.Background(), FactoryConfig{
		Provider:  ProviderOllama,
		CacheSize: -1,
	})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "none", p.Name(), "environment must win over config")
}

func TestNewProviderCacheDisabledViaEnv(t *testing.T) {
	t.Setenv("KBSEARCH_EMBED_CACHE", "false")

	p, err := NewProvider(context.Background(), FactoryConfig{Provider: ProviderNone})
	require.NoError(t, err)
	defer p.Close()

	_, ok := p.(*CachedProvider)
	assert.False(t, ok)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), FactoryConfig{Provider: "quantum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestDescribe(t *testing.T) {
	d := Describe(context.Background(), NewNoopProvider(768))

	assert.Equal(t, "none", d.Provider)
	assert.Equal(t, "none", d.Model)
	assert.Equal(t, 768, d.Dimensions)
	assert.False(t, d.Available)
}
