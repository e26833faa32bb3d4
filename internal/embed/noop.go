package embed

import (
	"context"
)

// NoopProvider is the backend used when semantic search is administratively
// disabled. It never errors: Embed returns a zero-filled vector so callers
// that embed unconditionally keep working, while EmbedBatch returns an empty
// slice so batch callers can detect that nothing was embedded. Batch callers
// must check for emptiness rather than assume one-to-one correspondence.
type NoopProvider struct {
	dims int
}

// Verify interface implementation at compile time
var _ Provider = (*NoopProvider)(nil)

// NewNoopProvider creates a no-op provider with the given dimensionality,
// falling back to DefaultDimensions when dims is not positive.
func NewNoopProvider(dims int) *NoopProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &NoopProvider{dims: dims}
}

// Embed returns a zero-filled vector of the configured dimensionality.
// Cosine similarity against such a vector is always exactly 0.
func (p *NoopProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, p.dims), nil
}

// EmbedBatch returns an empty slice regardless of input.
func (p *NoopProvider) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return [][]float32{}, nil
}

// Available always reports false.
func (p *NoopProvider) Available(_ context.Context) bool {
	return false
}

// Name returns the provider name.
func (p *NoopProvider) Name() string {
	return "none"
}

// ModelName returns the model identifier.
func (p *NoopProvider) ModelName() string {
	return "none"
}

// Dimensions returns the configured dimensionality.
func (p *NoopProvider) Dimensions() int {
	return p.dims
}

// Close is a no-op.
func (p *NoopProvider) Close() error {
	return nil
}
