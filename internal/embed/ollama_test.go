package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/tags and /api/embed with canned data.
func fakeOllama(t *testing.T, models []string, embedDims int, failures *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			infos := make([]ollamaModelInfo, len(models))
			for i, m := range models {
				infos[i] = ollamaModelInfo{Name: m}
			}
			_ = json.NewEncoder(w).Encode(ollamaModelListResponse{Models: infos})

		case "/api/embed":
			if failures != nil && failures.Add(-1) >= 0 {
				http.Error(w, "model is loading", http.StatusInternalServerError)
				return
			}
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			count := 1
			if arr, ok := req.Input.([]any); ok {
				count = len(arr)
			}
			embeddings := make([][]float64, count)
			for i := range embeddings {
				vec := make([]float64, embedDims)
				vec[0] = 3
				vec[1] = 4
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: req.Model, Embeddings: embeddings})

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProviderHealthCheckResolvesModel(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text:latest"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.NoError(t, err)
	defer p.Close()

	// Tag-suffixed installs match the bare configured name.
	assert.Equal(t, "nomic-embed-text:latest", p.ModelName())
	assert.Equal(t, 8, p.Dimensions(), "dimensions auto-detected from a test embedding")
	assert.True(t, p.Available(context.Background()))
}

func TestOllamaProviderFallbackModel(t *testing.T) {
	srv := fakeOllama(t, []string{"mxbai-embed-large"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "mxbai-embed-large", p.ModelName())
}

func TestOllamaProviderNoModelAvailable(t *testing.T) {
	srv := fakeOllama(t, []string{"llama3"}, 8, nil)

	_, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding model available")
}

func TestOllamaProviderEmbedNormalizes(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 8)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5, "vectors come back unit-length")
}

func TestOllamaProviderEmbedBlankText(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	vec, err := p.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestOllamaProviderEmbedBatchPreservesOrder(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer p.Close()

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, make([]float32, 8), vecs[1], "blank entries become zero vectors without an API call")
	assert.NotEqual(t, vecs[1], vecs[0])
	assert.NotEqual(t, vecs[1], vecs[2])
}

func TestOllamaProviderRetriesTransientFailures(t *testing.T) {
	var failures atomic.Int32
	failures.Store(2) // First two embed calls fail, third succeeds.
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, &failures)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Model:           "nomic-embed-text",
		Dimensions:      8,
		SkipHealthCheck: true,
		MaxRetries:      3,
	})
	require.NoError(t, err)
	defer p.Close()

	vec, err := p.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestOllamaProviderGivesUpAfterMaxRetries(t *testing.T) {
	var failures atomic.Int32
	failures.Store(100)
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, &failures)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      8,
		SkipHealthCheck: true,
		MaxRetries:      2,
	})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Embed(context.Background(), "doomed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestOllamaProviderBatchSizeClamping(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, nil)

	for _, size := range []int{-1, 0} {
		p, err := NewOllamaProvider(context.Background(), OllamaConfig{
			Host:            srv.URL,
			Dimensions:      8,
			SkipHealthCheck: true,
			BatchSize:       size,
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultBatchSize, p.config.BatchSize, "sub-minimum batch size %d falls back to the default", size)
		_ = p.Close()
	}

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      8,
		SkipHealthCheck: true,
		BatchSize:       MaxBatchSize + 1,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxBatchSize, p.config.BatchSize)
	_ = p.Close()
}

func TestOllamaProviderClosed(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8, nil)

	p, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Dimensions:      8,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	_, err = p.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, p.Available(context.Background()))
}

func TestOllamaProviderUnreachableHost(t *testing.T) {
	_, err := NewOllamaProvider(context.Background(), OllamaConfig{
		Host:           "http://127.0.0.1:1",
		ConnectTimeout: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
