// Package config loads kbsearch configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".kbsearch.yaml"

// Config is the complete kbsearch configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" json:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// StoreConfig configures the SQLite content store.
type StoreConfig struct {
	// Path to the database file. Empty means in-memory.
	Path string `yaml:"path" json:"path"`
}

// EmbeddingsConfig configures the embedding provider and chunking.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" (default) or "none".
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// Dimensions overrides auto-detection when non-zero.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	BatchSize  int `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the LRU embedding cache size (negative disables).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// ChunkSize is the per-chunk token budget.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the token overlap carried between chunks.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
}

// SearchConfig configures hybrid search fusion.
type SearchConfig struct {
	// Alpha is the semantic weight in rank fusion (0.0-1.0).
	Alpha float64 `yaml:"alpha" json:"alpha"`
	// RRFConstant is the fusion smoothing parameter (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// MinSimilarity is the cosine similarity floor for semantic candidates.
	MinSimilarity float64 `yaml:"min_similarity" json:"min_similarity"`
	DefaultLimit  int     `yaml:"default_limit" json:"default_limit"`
	MaxLimit      int     `yaml:"max_limit" json:"max_limit"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Embeddings: EmbeddingsConfig{
			Provider:     "ollama",
			Model:        "nomic-embed-text",
			OllamaHost:   "http://localhost:11434",
			BatchSize:    32,
			ChunkSize:    512,
			ChunkOverlap: 64,
		},
		Search: SearchConfig{
			Alpha:         0.6,
			RRFConstant:   60,
			MinSimilarity: 0.3,
			DefaultLimit:  10,
			MaxLimit:      100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kbsearch.db"
	}
	return filepath.Join(home, ".kbsearch", "kbsearch.db")
}

// Load builds the configuration: defaults, then the project YAML file in dir
// (if present), then environment overrides, then validation.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets KBSEARCH_* variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KBSEARCH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("KBSEARCH_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("KBSEARCH_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("KBSEARCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("KBSEARCH_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Alpha = f
		}
	}
	if v := os.Getenv("KBSEARCH_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("KBSEARCH_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.MinSimilarity = f
		}
	}
	if v := os.Getenv("KBSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks ranges and relationships.
func (c *Config) Validate() error {
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0, 1], got %v", c.Search.Alpha)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be in [-1, 1], got %v", c.Search.MinSimilarity)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Embeddings.ChunkSize <= 0 {
		return fmt.Errorf("embeddings.chunk_size must be positive, got %d", c.Embeddings.ChunkSize)
	}
	if c.Embeddings.ChunkOverlap < 0 || c.Embeddings.ChunkOverlap >= c.Embeddings.ChunkSize {
		return fmt.Errorf("embeddings.chunk_overlap must be in [0, chunk_size), got %d", c.Embeddings.ChunkOverlap)
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	return nil
}

// WriteYAML writes the configuration to path, creating directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
