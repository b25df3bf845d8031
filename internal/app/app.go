package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/promptd/promptd/internal/assemble"
	"github.com/promptd/promptd/internal/cache"
	"github.com/promptd/promptd/internal/config"
	"github.com/promptd/promptd/internal/engine"
	"github.com/promptd/promptd/internal/llm"
	"github.com/promptd/promptd/internal/media"
	"github.com/promptd/promptd/internal/memory"
	"github.com/promptd/promptd/internal/report"
	"github.com/promptd/promptd/internal/retrieval"
	"github.com/promptd/promptd/internal/tools"
	"github.com/promptd/promptd/internal/websearch"
)

// App aggregates every subsystem behind one explicit handle. There are
// no process-wide singletons; everything is constructed here and passed
// down.
type App struct {
	Config     *config.Config
	Backend    llm.Backend
	Store      *memory.Store
	Tracker    *memory.Tracker
	Cache      *cache.Cache
	DocIndex   *retrieval.DocIndex
	EmbedIndex *retrieval.EmbedIndex
	Watcher    *retrieval.Watcher
	Searcher   *websearch.Searcher
	Fetcher    *websearch.Fetcher
	Dispatcher *tools.Dispatcher
	Assembler  *assemble.Assembler
	Engine     *engine.Engine
	Reports    *report.Manager
	Media      *media.Pipeline
	Root       string
}

// New constructs the application from configuration. Runtime knobs are
// read-only once this returns.
func New(cfg *config.Config, root string) (*App, error) {
	backend := llm.NewClient(cfg.Ollama)
	return NewWithBackend(cfg, root, backend)
}

// NewWithBackend constructs the application around an explicit backend;
// tests substitute stubs here.
func NewWithBackend(cfg *config.Config, root string, backend llm.Backend) (*App, error) {
	store, err := memory.NewStore(cfg.MemoryPath(), cfg.Limits.MemoryMaxEntries, cfg.Limits.MemoryTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	tracker := memory.NewTracker(store)

	respCache, err := cache.New(cfg.CachePath(), cfg.Limits.CacheMaxEntries,
		cfg.Limits.CacheTTL, cfg.Limits.CacheFastTTL, cfg.Limits.SemanticThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}

	docIndex, err := retrieval.NewDocIndex(cfg.DocIndexPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open doc index: %w", err)
	}
	embedIndex, err := retrieval.NewEmbedIndex(cfg.EmbeddingsPath(), cfg.Models.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding index: %w", err)
	}

	watcher, err := retrieval.NewWatcher(docIndex, embedIndex)
	if err != nil {
		log.Warn("index watcher unavailable", "error", err)
		watcher = nil
	} else {
		watcher.WatchPaths(docIndex.Paths())
	}

	searcher := websearch.NewSearcher(cfg.Search)
	fetcher := websearch.NewFetcher()

	gen := generatorAdapter{backend: backend}
	dispatcher := tools.NewDispatcher(cfg.Tools, root, searcher, fetcher, gen, cfg.Models.Fast)

	assembler := assemble.New(cfg, backend, store, docIndex, embedIndex, searcher, fetcher, root)
	if cfg.Tools.SQLStorePath != "" {
		assembler.SetSchemaFn(func(ctx context.Context) (string, error) {
			result, err := dispatcher.Run(ctx, tools.SQLSchema, tools.Args{})
			if err != nil {
				return "", err
			}
			return result.Output, nil
		})
	}

	eng := engine.New(cfg, backend, tracker, store, respCache, assembler, dispatcher)
	reports := report.NewManager(gen, cfg.Models.Reasoning)
	mediaPipeline := media.NewPipeline(cfg.Media, cfg.OutputsDir())

	return &App{
		Config:     cfg,
		Backend:    backend,
		Store:      store,
		Tracker:    tracker,
		Cache:      respCache,
		DocIndex:   docIndex,
		EmbedIndex: embedIndex,
		Watcher:    watcher,
		Searcher:   searcher,
		Fetcher:    fetcher,
		Dispatcher: dispatcher,
		Assembler:  assembler,
		Engine:     eng,
		Reports:    reports,
		Media:      mediaPipeline,
		Root:       root,
	}, nil
}

// Shutdown flushes pending state
func (a *App) Shutdown() {
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	if err := a.Cache.Flush(); err != nil {
		log.Warn("failed to flush response cache", "error", err)
	}
}

// generatorAdapter exposes blocking generation with plain parameters to
// the tool, report and retrieval subsystems.
type generatorAdapter struct {
	backend llm.Backend
}

func (g generatorAdapter) Generate(ctx context.Context, model, system, prompt string, temperature *float64, maxTokens int) (string, error) {
	return g.backend.Generate(ctx, model, system, prompt, llm.Options{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}
