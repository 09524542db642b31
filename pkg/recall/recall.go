// Package recall runs the retrieval flow: filter stored events by the
// viewing character's point of view, rank the visible set against recent
// context, and render the winners into a budgeted injection block.
package recall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/inject"
	"github.com/storylore/chronicle/pkg/pov"
	"github.com/storylore/chronicle/pkg/relevance"
	"github.com/storylore/chronicle/pkg/storage"
)

// Config holds retrieval settings.
type Config struct {
	// TokenBudget bounds the rendered context block.
	TokenBudget int

	// MaxMemories caps how many events are injected per retrieval.
	MaxMemories int

	// POVPolicy controls the fail-open fallback.
	POVPolicy pov.Policy
}

// Request describes one retrieval.
type Request struct {
	SessionID string

	// Viewer is the character whose point of view bounds visibility.
	Viewer string

	// RecentText is the recent conversational context to rank against.
	RecentText string

	// ActiveCharacters are the names currently present in the scene.
	ActiveCharacters []string
}

// Response is the rendered injection block plus retrieval telemetry.
type Response struct {
	Context string

	// MemoriesSelected is how many events made the final cut.
	MemoriesSelected int

	// VisibleEvents is how many events passed the POV filter.
	VisibleEvents int

	// POVFallback reports that the fail-open fallback fired and the full
	// unfiltered set was used.
	POVFallback bool
}

// Retriever runs retrievals against a storage driver.
type Retriever struct {
	store  storage.Driver
	config Config
	logger *zap.Logger
	status extract.StatusFunc
}

// New creates a Retriever.
func New(store storage.Driver, config Config, logger *zap.Logger, status extract.StatusFunc) *Retriever {
	if config.TokenBudget <= 0 {
		config.TokenBudget = 500
	}
	if config.MaxMemories <= 0 {
		config.MaxMemories = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		store:  store,
		config: config,
		logger: logger,
		status: status,
	}
}

// Retrieve builds the injection block for a request and records it on the
// snapshot as the live injected context.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Response, error) {
	r.statusEmit(extract.StatusRetrieving)

	snap, err := storage.LoadOrInit(ctx, r.store, req.SessionID)
	if err != nil {
		r.statusEmit(extract.StatusError)
		return nil, err
	}

	visible, fellBack := pov.Filter(snap, req.Viewer, r.config.POVPolicy, r.logger)

	selected := relevance.Select(visible, relevance.Params{
		RecentText:       req.RecentText,
		ActiveCharacters: req.ActiveCharacters,
		Now:              time.Now(),
		Limit:            r.config.MaxMemories,
	})

	block := ""
	if len(selected) > 0 {
		block = inject.Format(selected, snap, inject.Params{
			Viewer:      req.Viewer,
			TokenBudget: r.config.TokenBudget,
		}, r.logger)
	}

	snap.InjectedContext = block
	if err := r.store.Save(ctx, req.SessionID, snap); err != nil {
		r.statusEmit(extract.StatusError)
		return nil, err
	}

	r.statusEmit(extract.StatusReady)

	return &Response{
		Context:          block,
		MemoriesSelected: len(selected),
		VisibleEvents:    len(visible),
		POVFallback:      fellBack,
	}, nil
}

func (r *Retriever) statusEmit(s extract.Status) {
	if r.status != nil {
		r.status(s)
	}
}
