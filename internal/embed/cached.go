package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache configuration constants.
const (
	// DefaultEmbeddingCacheSize is the default number of embeddings to cache.
	// At 768 dimensions * 4 bytes * 1000 entries it stays around 3MB.
	DefaultEmbeddingCacheSize = 1000
)

// CachedProvider wraps a Provider with LRU caching so repeated queries skip
// the round trip to the embedding backend.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// Verify interface implementation at compile time
var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider creates a cached provider wrapping the given provider.
// Cache size determines the number of unique text embeddings kept in memory.
func NewCachedProvider(inner Provider, cacheSize int) *CachedProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedProvider{
		inner: inner,
		cache: cache,
	}
}

// cacheKey generates a unique key based on text and model.
// SHA256 keeps key length consistent for arbitrary text.
func (c *CachedProvider) cacheKey(text string) string {
	combined := text + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Embed returns a cached embedding if available, otherwise computes and caches.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

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

// EmbedBatch embeds multiple texts, checking and filling the cache per text
// for maximum reuse. If the inner provider returns fewer embeddings than
// requested (no-op backend), the partial result is passed through uncached.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
		} else {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}

	if len(uncachedTexts) == 0 {
		// A fully cache-hit batch returns without consulting the inner
		// provider, even one whose own EmbedBatch would return empty.
		// That is safe: a disabled backend only ever populates the cache
		// with zero vectors via Embed, and zero vectors average and score
		// to zero downstream.
		return results, nil
	}

	newEmbeddings, err := c.inner.EmbedBatch(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}
	if len(newEmbeddings) != len(uncachedTexts) {
		return newEmbeddings, nil
	}

	for j, idx := range uncachedIndices {
		results[idx] = newEmbeddings[j]
		c.cache.Add(c.cacheKey(texts[idx]), newEmbeddings[j])
	}

	return results, nil
}

// Available checks if the provider is ready (passthrough to inner).
func (c *CachedProvider) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Name returns the provider name (passthrough to inner).
func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// ModelName returns the model identifier (passthrough to inner).
func (c *CachedProvider) ModelName() string {
	return c.inner.ModelName()
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (c *CachedProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases resources and closes the inner provider.
func (c *CachedProvider) Close() error {
	return c.inner.Close()
}

// Inner returns the underlying provider.
func (c *CachedProvider) Inner() Provider {
	return c.inner
}
