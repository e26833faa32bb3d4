// Package backfill keeps stored embeddings synchronized with the corpus.
package backfill

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kbridge/kbsearch/internal/store"
)

// Embedder is the slice of the embedding service the pipeline needs.
type Embedder interface {
	EmbedWithChunking(ctx context.Context, text string) ([]float32, error)
	Available(ctx context.Context) bool
	ModelName() string
	Dimensions() int
}

// RunStats summarizes the most recent (or in-flight) backfill run.
type RunStats struct {
	Scanned  int `json:"scanned"`
	Embedded int `json:"embedded"`
	Errors   int `json:"errors"`
}

// Stats is the externally visible pipeline state.
type Stats struct {
	Pending           int      `json:"pending"`
	ProviderAvailable bool     `json:"provider_available"`
	Running           bool     `json:"running"`
	LastRun           RunStats `json:"last_run"`
}

// Pipeline backfills missing embeddings across all domains. At most one run
// is in flight at a time: a trigger while running is a no-op, and callers
// are expected to poll IsProcessing rather than queue.
//
// Progress persists entity by entity, so an interrupted run resumes where it
// left off: the next trigger simply finds fewer missing entities.
type Pipeline struct {
	content  store.ContentStore
	embedder Embedder

	running atomic.Bool

	mu      sync.RWMutex
	lastRun RunStats

	wg sync.WaitGroup
}

// NewPipeline creates a backfill pipeline.
func NewPipeline(content store.ContentStore, embedder Embedder) *Pipeline {
	return &Pipeline{
		content:  content,
		embedder: embedder,
	}
}

// Sync triggers an asynchronous backfill of all entities lacking a valid
// embedding. Returns true if a run was started, false if one was already in
// flight.
func (p *Pipeline) Sync(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		slog.Debug("backfill_already_running")
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Store(false)
		p.run(ctx)
	}()
	return true
}

// IsProcessing reports whether a run is in flight.
func (p *Pipeline) IsProcessing() bool {
	return p.running.Load()
}

// Wait blocks until the in-flight run (if any) finishes. Intended for
// shutdown and tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// GetStats returns the pending count, provider availability, and the stats
// of the latest run.
func (p *Pipeline) GetStats(ctx context.Context) (Stats, error) {
	pending, err := p.content.CountMissingEmbeddings(ctx, p.embedder.Dimensions())
	if err != nil {
		return Stats{}, err
	}

	p.mu.RLock()
	last := p.lastRun
	p.mu.RUnlock()

	return Stats{
		Pending:           pending,
		ProviderAvailable: p.embedder.Available(ctx),
		Running:           p.running.Load(),
		LastRun:           last,
	}, nil
}

// run processes every domain in order. Per-entity failures are counted and
// skipped; only a cancelled context stops the run early.
func (p *Pipeline) run(ctx context.Context) {
	var stats RunStats
	defer func() {
		p.mu.Lock()
		p.lastRun = stats
		p.mu.Unlock()

		slog.Info("backfill_finished",
			slog.Int("scanned", stats.Scanned),
			slog.Int("embedded", stats.Embedded),
			slog.Int("errors", stats.Errors))
	}()

	if !p.embedder.Available(ctx) {
		slog.Warn("backfill_skipped", slog.String("reason", "embedding provider unavailable"))
		return
	}

	dims := p.embedder.Dimensions()
	model := p.embedder.ModelName()

	for _, domain := range store.AllDomains() {
		if ctx.Err() != nil {
			return
		}

		entities, err := p.content.FindMissingEmbeddings(ctx, domain, dims)
		if err != nil {
			slog.Error("backfill_enumeration_failed",
				slog.String("domain", string(domain)),
				slog.String("error", err.Error()))
			stats.Errors++
			continue
		}

		for _, e := range entities {
			if ctx.Err() != nil {
				return
			}
			stats.Scanned++

			vec, err := p.embedder.EmbedWithChunking(ctx, e.Content)
			if err != nil {
				slog.Warn("backfill_embed_failed",
					slog.String("domain", string(domain)),
					slog.Int64("entity_id", e.ID),
					slog.String("error", err.Error()))
				stats.Errors++
				continue
			}

			if err := p.content.SaveEmbedding(ctx, e.ID, vec, model); err != nil {
				slog.Warn("backfill_save_failed",
					slog.Int64("entity_id", e.ID),
					slog.String("error", err.Error()))
				stats.Errors++
				continue
			}
			stats.Embedded++
		}
	}
}
