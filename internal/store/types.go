package store

import (
	"context"
	"time"
)

// Domain tags the corpus segment an entity belongs to. Searches and backfill
// enumeration are always scoped per domain.
type Domain string

const (
	DomainDocumentation Domain = "documentation"
	DomainCodeExample   Domain = "code-example"
	DomainGuidance      Domain = "guidance-flavor"
	DomainMigration     Domain = "migration-transformation"
)

// AllDomains returns every supported domain in a fixed order.
func AllDomains() []Domain {
	return []Domain{
		DomainDocumentation,
		DomainCodeExample,
		DomainGuidance,
		DomainMigration,
	}
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainDocumentation, DomainCodeExample, DomainGuidance, DomainMigration:
		return true
	}
	return false
}

// Entity is a corpus item eligible for embedding. Embedding is nil until the
// backfill pipeline populates it; EmbeddingDims records the length the vector
// was stored at, so a provider change to a different dimensionality makes the
// stored vector detectably stale.
type Entity struct {
	ID             int64
	Domain         Domain
	Title          string
	Content        string
	Embedding      []float32
	EmbeddingDims  int
	EmbeddingModel string
	UpdatedAt      time.Time
}

// HasValidEmbedding reports whether the stored vector matches the given
// dimensionality. A mismatched vector counts as missing, never as usable.
func (e *Entity) HasValidEmbedding(dims int) bool {
	return len(e.Embedding) > 0 && e.EmbeddingDims == dims && len(e.Embedding) == dims
}

// ContentStore is the persistence boundary for entities and their vectors.
type ContentStore interface {
	// SaveEntity inserts or updates an entity and its lexical index entry.
	// A zero ID means insert; the assigned ID is written back.
	SaveEntity(ctx context.Context, e *Entity) error

	// FindMissingEmbeddings returns entities in the domain with no stored
	// vector, or a vector stored at a different dimensionality than dims.
	FindMissingEmbeddings(ctx context.Context, domain Domain, dims int) ([]*Entity, error)

	// SaveEmbedding persists the vector for an entity.
	SaveEmbedding(ctx context.Context, id int64, vector []float32, model string) error

	// FindByID returns the entity including its stored vector, or nil when
	// no entity has that ID.
	FindByID(ctx context.Context, id int64) (*Entity, error)

	// ListWithEmbeddings returns entities in the domain whose stored vector
	// matches dims, for the semantic scan.
	ListWithEmbeddings(ctx context.Context, domain Domain, dims int) ([]*Entity, error)

	// CountMissingEmbeddings counts entities across all domains lacking a
	// valid vector at dims.
	CountMissingEmbeddings(ctx context.Context, dims int) (int, error)

	Close() error
}

// KeywordResult is one ranked lexical match.
type KeywordResult struct {
	ID    int64
	Score float64
}

// LexicalIndex is the ranked keyword search boundary.
type LexicalIndex interface {
	// SearchKeyword returns entities in the domain matching the query,
	// best match first. Higher score means better match.
	SearchKeyword(ctx context.Context, domain Domain, query string, limit int) ([]KeywordResult, error)
}
