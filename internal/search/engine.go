package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kbridge/kbsearch/internal/embed"
	"github.com/kbridge/kbsearch/internal/store"
)

// Embedder is the slice of the embedding service the engine needs.
type Embedder interface {
	EmbedWithChunking(ctx context.Context, text string) ([]float32, error)
	Available(ctx context.Context) bool
	Dimensions() int
}

// Engine runs hybrid search over one content store. The lexical and semantic
// paths execute in parallel; a failing semantic path degrades the search to
// lexical-only instead of failing it.
type Engine struct {
	content  store.ContentStore
	lexical  store.LexicalIndex
	embedder Embedder
	config   EngineConfig
}

// NewEngine creates a hybrid search engine.
func NewEngine(content store.ContentStore, lexical store.LexicalIndex, embedder Embedder, config EngineConfig) *Engine {
	return &Engine{
		content:  content,
		lexical:  lexical,
		embedder: embedder,
		config:   config.withDefaults(),
	}
}

// Search returns the fused ranking for the query within one domain. A blank
// query yields an empty result without touching either path.
func (e *Engine) Search(ctx context.Context, domain store.Domain, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	limit = e.clampLimit(limit)

	// Fetch deeper than the final limit so fusion can promote entities
	// ranked past the cut in a single list.
	fetchLimit := limit * 3

	var (
		lexicalIDs  []int64
		semanticIDs []int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := e.lexical.SearchKeyword(gctx, domain, query, fetchLimit)
		if err != nil {
			return err
		}
		lexicalIDs = make([]int64, len(hits))
		for i, h := range hits {
			lexicalIDs[i] = h.ID
		}
		return nil
	})

	g.Go(func() error {
		ids, err := e.semanticSearch(gctx, domain, query, fetchLimit)
		if err != nil {
			// Semantic failures degrade the search, they never fail it.
			slog.Warn("semantic_search_failed",
				slog.String("domain", string(domain)),
				slog.String("error", err.Error()))
			return nil
		}
		semanticIDs = ids
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := FuseRanks(semanticIDs, lexicalIDs, e.config.Alpha, e.config.RRFConstant)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// semanticSearch embeds the query and ranks stored vectors by cosine
// similarity, discarding candidates below the similarity floor. An
// unavailable provider yields no candidates rather than an error.
// Over-budget queries go through the same chunk-and-average path as
// documents, so query and document vectors stay comparable.
func (e *Engine) semanticSearch(ctx context.Context, domain store.Domain, query string, limit int) ([]int64, error) {
	if !e.embedder.Available(ctx) {
		return nil, nil
	}

	queryVec, err := e.embedder.EmbedWithChunking(ctx, query)
	if err != nil {
		return nil, err
	}

	entities, err := e.content.ListWithEmbeddings(ctx, domain, e.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	type scored struct {
		id  int64
		sim float64
	}
	candidates := make([]scored, 0, len(entities))
	for _, ent := range entities {
		sim, err := embed.CosineSimilarity(queryVec, ent.Embedding)
		if err != nil {
			// Dimensionality drift on a single vector; skip it.
			continue
		}
		if sim < e.config.MinSimilarity {
			continue
		}
		candidates = append(candidates, scored{id: ent.ID, sim: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].id < candidates[j].id
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return limit
}
