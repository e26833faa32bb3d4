package embed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kbridge/kbsearch/internal/chunk"
)

// Service orchestrates single, batch, and long-document embedding on top of
// the active provider and the text chunker.
type Service struct {
	provider Provider
	chunker  *chunk.Chunker
}

// NewService creates an embedding service.
func NewService(provider Provider, chunker *chunk.Chunker) *Service {
	return &Service{
		provider: provider,
		chunker:  chunker,
	}
}

// Embed generates an embedding for a single text. Blank input resolves to a
// zero-filled vector of the configured dimensionality without contacting the
// provider.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, s.provider.Dimensions()), nil
	}
	return s.provider.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts. Nil or empty input
// yields an empty slice without contacting the provider.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return s.provider.EmbedBatch(ctx, texts)
}

// EmbedWithChunking is the long-document path. Text within the chunk budget
// delegates directly to Embed. Oversized text is chunked, embedded in one
// batch call, and the per-chunk vectors are average-pooled element-wise into
// a single vector. Pooling is unweighted by chunk length or position;
// downstream similarity floors are tuned against this exact behavior.
func (s *Service) EmbedWithChunking(ctx context.Context, text string) ([]float32, error) {
	if !s.chunker.NeedsChunking(text) {
		return s.Embed(ctx, text)
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return make([]float32, s.provider.Dimensions()), nil
	}

	vectors, err := s.provider.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}

	// A disabled provider returns an empty batch; resolve to a zero vector
	// rather than failing the caller.
	if len(vectors) == 0 {
		return make([]float32, s.provider.Dimensions()), nil
	}

	return averagePool(vectors)
}

// averagePool computes the element-wise mean of the given vectors.
func averagePool(vectors [][]float32) ([]float32, error) {
	dims := len(vectors[0])
	sums := make([]float64, dims)

	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: pooling %d-dim vector with %d-dim vector", ErrDimensionMismatch, dims, len(v))
		}
		for i, val := range v {
			sums[i] += float64(val)
		}
	}

	pooled := make([]float32, dims)
	n := float64(len(vectors))
	for i, sum := range sums {
		pooled[i] = float32(sum / n)
	}
	return pooled, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// A nil argument yields 0.0 without error. Vectors of unequal length fail
// with ErrDimensionMismatch and are never padded or truncated. A
// zero-magnitude vector yields 0.0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if a == nil || b == nil {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Available reports whether the active provider is ready.
func (s *Service) Available(ctx context.Context) bool {
	return s.provider.Available(ctx)
}

// ProviderName forwards to the active provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// ModelName forwards to the active provider.
func (s *Service) ModelName() string {
	return s.provider.ModelName()
}

// Dimensions forwards to the active provider.
func (s *Service) Dimensions() int {
	return s.provider.Dimensions()
}

// Provider returns the active provider.
func (s *Service) Provider() Provider {
	return s.provider
}

// Close releases provider resources.
func (s *Service) Close() error {
	return s.provider.Close()
}
