// Package cmd provides the CLI commands for kbsearch.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbridge/kbsearch/internal/backfill"
	"github.com/kbridge/kbsearch/internal/chunk"
	"github.com/kbridge/kbsearch/internal/config"
	"github.com/kbridge/kbsearch/internal/embed"
	"github.com/kbridge/kbsearch/internal/logging"
	"github.com/kbridge/kbsearch/internal/search"
	"github.com/kbridge/kbsearch/internal/store"
	"github.com/kbridge/kbsearch/pkg/version"
)

var (
	flagStorePath string
	flagLogLevel  string
)

// NewRootCmd creates the root command for the kbsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbsearch",
		Short: "Hybrid lexical + semantic search over a knowledge corpus",
		Long: `kbsearch indexes documentation, code examples, guidance, and migration
notes, and searches them with combined keyword and vector-similarity
ranking. Embeddings are generated locally via Ollama; without a running
provider, search degrades to keyword-only.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("kbsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagStorePath, "db", "", "Path to the content store database (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(
		newAddCmd(),
		newSearchCmd(),
		newBackfillCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// app bundles the wired subsystems behind one Close.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	service  *embed.Service
	engine   *search.Engine
	pipeline *backfill.Pipeline
}

// openApp loads configuration and wires the store, embedding service,
// search engine, and backfill pipeline.
func openApp(ctx context.Context) (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if flagStorePath != "" {
		cfg.Store.Path = flagStorePath
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}

	logging.Setup(os.Stderr, cfg.Logging.Level)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	provider, err := embed.NewProvider(ctx, embed.FactoryConfig{
		Provider:   embed.ParseProvider(cfg.Embeddings.Provider),
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	chunker := chunk.New(chunk.Options{
		MaxTokens:     cfg.Embeddings.ChunkSize,
		OverlapTokens: cfg.Embeddings.ChunkOverlap,
	})
	service := embed.NewService(provider, chunker)

	engine := search.NewEngine(st, st, service, search.EngineConfig{
		Alpha:         cfg.Search.Alpha,
		RRFConstant:   cfg.Search.RRFConstant,
		MinSimilarity: cfg.Search.MinSimilarity,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
	})

	return &app{
		cfg:      cfg,
		store:    st,
		service:  service,
		engine:   engine,
		pipeline: backfill.NewPipeline(st, service),
	}, nil
}

func (a *app) Close() {
	_ = a.service.Close()
	_ = a.store.Close()
}

// parseDomain validates a domain argument.
func parseDomain(s string) (store.Domain, error) {
	d := store.Domain(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown domain %q (expected one of: %v)", s, store.AllDomains())
	}
	return d, nil
}
