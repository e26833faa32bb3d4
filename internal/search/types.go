// Package search provides hybrid retrieval combining keyword matching and
// vector similarity, fused with Reciprocal Rank Fusion (RRF).
package search

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// Default engine tuning.
const (
	DefaultAlpha         = 0.6
	DefaultMinSimilarity = 0.3
	DefaultLimit         = 10
	DefaultMaxLimit      = 100
)

// Result is one ranked search hit. Score is a dimensionless rank-fusion
// value, not a probability; results order descending by score with ties
// broken by ascending ID.
type Result struct {
	ID    int64
	Score float64
}

// EngineConfig tunes the hybrid engine.
type EngineConfig struct {
	// Alpha weights the semantic list in fusion (0 = lexical only,
	// 1 = semantic only).
	Alpha float64
	// RRFConstant is the smoothing constant k.
	RRFConstant int
	// MinSimilarity discards semantic candidates below this cosine
	// similarity before ranking.
	MinSimilarity float64
	// DefaultLimit applies when a caller passes limit <= 0.
	DefaultLimit int
	// MaxLimit caps any requested limit.
	MaxLimit int
}

// DefaultEngineConfig returns the standard tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Alpha:         DefaultAlpha,
		RRFConstant:   DefaultRRFConstant,
		MinSimilarity: DefaultMinSimilarity,
		DefaultLimit:  DefaultLimit,
		MaxLimit:      DefaultMaxLimit,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Alpha < 0 || c.Alpha > 1 {
		c.Alpha = DefaultAlpha
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = DefaultRRFConstant
	}
	if c.MinSimilarity < 0 {
		c.MinSimilarity = DefaultMinSimilarity
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = DefaultMaxLimit
	}
	return c
}
