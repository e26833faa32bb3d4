// Package embed provides pluggable embedding providers and the embedding
// service that orchestrates chunked and batched vector generation.
package embed

import (
	"context"
	"errors"
	"math"
	"time"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultWarmTimeout is the timeout for requests when the model is loaded
	DefaultWarmTimeout = 60 * time.Second

	// DefaultColdTimeout is the timeout for the first request, when the
	// backend may still need to load the model
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is the duration after which a model is considered
	// "cold". Ollama unloads models after ~5 minutes of inactivity.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// DefaultDimensions is the dimensionality used when the feature is
	// disabled or the backend cannot report one
	DefaultDimensions = 768
)

// ErrDimensionMismatch indicates two vectors of unequal length were compared.
// This is a configuration or data-integrity bug and is never silently coerced.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Provider generates vector embeddings for text.
type Provider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Available checks if the provider is ready. Availability can change
	// between requests, so callers must not cache the answer across calls.
	Available(ctx context.Context) bool

	// Name returns the provider name (e.g. "ollama", "none")
	Name() string

	// ModelName returns the model identifier
	ModelName() string

	// Dimensions returns the embedding dimension
	Dimensions() int

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
