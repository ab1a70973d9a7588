// Package app wires configuration into a ready-to-serve application
// context. It replaces any notion of a lazily-initialized global
// service: construction happens once at process start and failures are
// returned as errors, not discovered later as nil components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bull/legalqa-server/internal/chunker"
	"github.com/bull/legalqa-server/internal/config"
	"github.com/bull/legalqa-server/internal/embedding"
	"github.com/bull/legalqa-server/internal/generation"
	"github.com/bull/legalqa-server/internal/index"
	"github.com/bull/legalqa-server/internal/ingest"
	"github.com/bull/legalqa-server/internal/qa"
	"github.com/bull/legalqa-server/internal/translate"
)

// App holds every long-lived component of the service.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Service  *qa.Service
	Splitter *chunker.Splitter

	fileIndex *index.FileIndex
	builder   ingest.Builder
	closers   []func() error
}

// New constructs the application context. The vector index is created
// but not loaded; call LoadIndex before serving queries.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	embedder := embedding.NewEmbedder(client,
		cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimension, 0, cfg.OpenAI.EmbedTimeout)
	generator := generation.NewGenerator(client, cfg.OpenAI.ChatModel, cfg.OpenAI.ChatTimeout)

	translator, err := translate.New(generator, cfg.Translation.CacheSize, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Splitter: chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap),
	}

	var retriever qa.Retriever
	switch cfg.Index.Store {
	case "", "file":
		fi := index.NewFileIndex(cfg.Index.Dir, embedder, logger)
		a.fileIndex = fi
		a.builder = fi
		retriever = fi
	case "qdrant":
		qi, err := index.NewQdrantIndex(cfg.Qdrant.Host, cfg.Qdrant.Port,
			cfg.Qdrant.Collection, embedder.Dimension(), embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant index: %w", err)
		}
		a.builder = qi
		retriever = qi
		a.closers = append(a.closers, qi.Close)
	default:
		return nil, fmt.Errorf("unknown index store %q (want file or qdrant)", cfg.Index.Store)
	}

	a.Service = qa.New(retriever, translator, generator,
		cfg.Index.TopK, cfg.Index.MaxContextChars, logger)
	return a, nil
}

// LoadIndex loads persisted index artifacts for the file store. A
// missing or corrupt index is logged, not fatal: the server still
// starts and reports the condition through health checks and per-query
// errors until ingestion runs.
func (a *App) LoadIndex(ctx context.Context) {
	if a.fileIndex == nil {
		return
	}
	if err := a.fileIndex.Load(ctx); err != nil {
		a.Logger.Warn("vector index unavailable, run ingestion to build it", "error", err)
	}
}

// Builder returns the index build surface for ingestion.
func (a *App) Builder() ingest.Builder {
	return a.builder
}

// Close releases held connections.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLogger builds the process logger at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
