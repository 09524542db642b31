// Package runtime wires the chronicle pipeline components from merged
// configuration so every CLI command shares one construction path.
package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/backfill"
	"github.com/storylore/chronicle/pkg/config"
	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/llm"
	"github.com/storylore/chronicle/pkg/logger"
	"github.com/storylore/chronicle/pkg/pov"
	"github.com/storylore/chronicle/pkg/propagate"
	"github.com/storylore/chronicle/pkg/recall"
	"github.com/storylore/chronicle/pkg/storage"
	"github.com/storylore/chronicle/pkg/storage/inmemory"
	"github.com/storylore/chronicle/pkg/storage/postgres"
	"github.com/storylore/chronicle/pkg/storage/sqlite"
)

// Overrides are flag-level settings that win over config file and
// environment values.
type Overrides struct {
	SQLitePath      string
	StorageProvider string
	LLMProvider     string
	Model           string
}

// Runtime bundles the constructed pipeline components.
type Runtime struct {
	Logger    *zap.Logger
	Config    *config.Config
	Store     storage.Driver
	Caller    llm.CallFunc
	Extractor *extract.Orchestrator
	Scheduler *backfill.Scheduler
	Retriever *recall.Retriever
}

// Build constructs a Runtime from the merged configuration. Status is
// optional; pass nil when no sink wants lifecycle transitions.
func Build(ctx context.Context, configDir string, debug bool, overrides Overrides, status extract.StatusFunc) (*Runtime, error) {
	log := logger.NewLogger(debug)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, overrides)

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	caller, err := llm.NewCaller(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Logger:   log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	propagator := propagate.New(nil, log)

	extractor := extract.New(caller, store, propagator, extract.Config{
		MessagesPerExtraction: cfg.Extraction.MessagesPerExtraction,
		MemoryContextCount:    cfg.Extraction.MemoryContextCount,
		MaxResponseTokens:     cfg.Extraction.MaxResponseTokens,
	}, log, status)

	scheduler := backfill.NewScheduler(extractor, store, backfill.Options{
		BatchSize: cfg.Backfill.BatchSize,
		MaxRPM:    cfg.Backfill.MaxRPM,
	}, log)

	retriever := recall.New(store, recall.Config{
		TokenBudget: cfg.Retrieval.TokenBudget,
		MaxMemories: cfg.Retrieval.MaxMemories,
		POVPolicy:   pov.Policy{FailOpen: cfg.Retrieval.POVFailOpen},
	}, log, status)

	return &Runtime{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Caller:    caller,
		Extractor: extractor,
		Scheduler: scheduler,
		Retriever: retriever,
	}, nil
}

// RetrieverWith returns a Retriever sharing the runtime's store and logger
// but using custom retrieval settings.
func (r *Runtime) RetrieverWith(cfg config.RetrievalConfig) *recall.Retriever {
	return recall.New(r.Store, recall.Config{
		TokenBudget: cfg.TokenBudget,
		MaxMemories: cfg.MaxMemories,
		POVPolicy:   pov.Policy{FailOpen: cfg.POVFailOpen},
	}, r.Logger, nil)
}

// Close releases the runtime's resources.
func (r *Runtime) Close() error {
	_ = r.Logger.Sync()
	return r.Store.Close()
}

func applyOverrides(cfg *config.Config, o Overrides) {
	if o.SQLitePath != "" {
		cfg.Storage.Provider = "sqlite"
		cfg.Storage.SQLitePath = o.SQLitePath
	}
	if o.StorageProvider != "" {
		cfg.Storage.Provider = o.StorageProvider
	}
	if o.LLMProvider != "" {
		cfg.LLM.Provider = o.LLMProvider
	}
	if o.Model != "" {
		cfg.LLM.Model = o.Model
	}
}

func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Driver, error) {
	switch cfg.Storage.Provider {
	case "sqlite", "":
		driver, err := sqlite.NewDriver(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info("using SQLite storage", zap.String("path", cfg.Storage.SQLitePath))
		return driver, nil

	case "postgres":
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		log.Info("using Postgres storage")
		return driver, nil

	case "inmemory":
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Storage.Provider)
	}
}
