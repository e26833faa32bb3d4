package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	// ProviderOllama uses the Ollama API for embeddings (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderNone disables semantic search; searches degrade to lexical-only
	ProviderNone ProviderType = "none"
)

// FactoryConfig selects and configures the active provider.
type FactoryConfig struct {
	// Provider selects the backend ("ollama" or "none")
	Provider ProviderType
	// Model is the embedding model identifier (Ollama only)
	Model string
	// Host is the backend endpoint (Ollama only)
	Host string
	// Dimensions overrides auto-detection when non-zero
	Dimensions int
	// BatchSize for batch requests
	BatchSize int
	// CacheSize is the LRU embedding cache size (0 = default, negative = disabled)
	CacheSize int
}

// NewProvider creates a provider based on configuration. The
// KBSEARCH_PROVIDER environment variable overrides the configured backend,
// which keeps the feature switchable without editing config files.
//
// The result is wrapped with an LRU cache unless caching is disabled via
// negative CacheSize or KBSEARCH_EMBED_CACHE=false.
func NewProvider(ctx context.Context, cfg FactoryConfig) (Provider, error) {
	provider := cfg.Provider
	if env := os.Getenv("KBSEARCH_PROVIDER"); env != "" {
		provider = ParseProvider(env)
	}

	var p Provider
	switch provider {
	case ProviderNone:
		p = NewNoopProvider(cfg.Dimensions)

	case ProviderOllama, "":
		ollamaCfg := DefaultOllamaConfig()
		if cfg.Model != "" {
			ollamaCfg.Model = cfg.Model
		}
		if cfg.Host != "" {
			ollamaCfg.Host = cfg.Host
		}
		if host := os.Getenv("KBSEARCH_OLLAMA_HOST"); host != "" {
			ollamaCfg.Host = host
		}
		ollamaCfg.Dimensions = cfg.Dimensions
		ollamaCfg.BatchSize = cfg.BatchSize

		ollama, err := NewOllamaProvider(ctx, ollamaCfg)
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w (set provider to \"none\" for lexical-only search)", err)
		}
		p = ollama

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	if cfg.CacheSize >= 0 && !isCacheDisabled() {
		p = NewCachedProvider(p, cfg.CacheSize)
	}

	return p, nil
}

// isCacheDisabled checks if the embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("KBSEARCH_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// ParseProvider converts a string to ProviderType. Unrecognized values
// default to Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "disabled", "off":
		return ProviderNone
	case "ollama":
		return ProviderOllama
	default:
		return ProviderOllama
	}
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderNone)}
}

// Descriptor describes the active provider. It is queried on demand and must
// not be cached across orchestration calls, since availability can change
// between requests.
type Descriptor struct {
	Provider   string
	Model      string
	Dimensions int
	Available  bool
}

// Describe returns the current provider descriptor.
func Describe(ctx context.Context, p Provider) Descriptor {
	return Descriptor{
		Provider:   p.Name(),
		Model:      p.ModelName(),
		Dimensions: p.Dimensions(),
		Available:  p.Available(ctx),
	}
}
