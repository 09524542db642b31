// Package extract runs a single extraction cycle: select turns, build the
// prompt, call the model, parse the response, propagate derived state, and
// persist the updated snapshot.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/llm"
	"github.com/storylore/chronicle/pkg/prompt"
	"github.com/storylore/chronicle/pkg/propagate"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// systemInstruction is the fixed system message for every extraction call.
const systemInstruction = "You are a story archivist. You read roleplay " +
	"conversation excerpts and record the significant events as structured " +
	"JSON. You respond with JSON only, never prose."

// Config holds orchestrator settings.
type Config struct {
	// MessagesPerExtraction caps how many unprocessed turns an automatic
	// cycle selects.
	MessagesPerExtraction int

	// MemoryContextCount is how many recent prior memories are shown to the
	// model to avoid duplicate extraction.
	MemoryContextCount int

	// MaxResponseTokens caps the model response size.
	MaxResponseTokens int
}

// Batch describes one extraction cycle's input.
type Batch struct {
	// SessionID identifies the conversation.
	SessionID string

	// Turns is the conversation's ordered turn list, as supplied by the
	// host platform.
	Turns []session.Turn

	// TurnIDs, when non-empty, selects exactly these turns. When empty the
	// orchestrator auto-selects the most recent unprocessed turns up to the
	// configured count.
	TurnIDs []int

	// CharacterName is the primary character (or narrator) name.
	CharacterName string

	// UserName is the name the user speaks as.
	UserName string

	// Descriptions are optional character/persona descriptions.
	Descriptions []string

	// Settings, when non-nil, replaces the session's stored per-chat
	// settings (card type, date tracking, auxiliary names) before the
	// prompt is built, and is persisted with the cycle's result.
	Settings *session.Settings
}

// Result reports one completed extraction cycle.
type Result struct {
	BatchID           string
	EventsCreated     int
	MessagesProcessed int

	// ParseFailed is set when the model responded but the response was not
	// parseable. The cycle still counts as a success, but the processed
	// marker was not advanced, so the turns remain eligible for retry.
	ParseFailed bool
}

// Summary returns a human-readable one-line result.
func (r *Result) Summary() string {
	if r.ParseFailed {
		return "Extraction response unparseable; no events recorded"
	}
	return fmt.Sprintf("Extracted %d events from %d messages", r.EventsCreated, r.MessagesProcessed)
}

// Orchestrator drives extraction cycles against a storage driver.
type Orchestrator struct {
	caller     llm.CallFunc
	store      storage.Driver
	propagator *propagate.Propagator
	config     Config
	logger     *zap.Logger
	status     StatusFunc
}

// New creates an Orchestrator. The caller may be nil, in which case every
// cycle fails with a ConfigurationError. A nil status sink discards
// transitions.
func New(caller llm.CallFunc, store storage.Driver, propagator *propagate.Propagator, config Config, logger *zap.Logger, status StatusFunc) *Orchestrator {
	if propagator == nil {
		propagator = propagate.New(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MessagesPerExtraction <= 0 {
		config.MessagesPerExtraction = 10
	}
	if config.MemoryContextCount <= 0 {
		config.MemoryContextCount = 5
	}

	return &Orchestrator{
		caller:     caller,
		store:      store,
		propagator: propagator,
		config:     config,
		logger:     logger,
		status:     status,
	}
}

// Run executes one extraction cycle for the batch.
//
// A failed model call or unexpected error returns an ExtractionError tagged
// with the attempted turn ids and commits nothing. A successful call that
// yields zero events still advances the processed marker: "no events found"
// is a valid terminal outcome. A successful call whose response cannot be
// parsed does not advance the marker, so those turns stay retryable.
func (o *Orchestrator) Run(ctx context.Context, batch Batch) (*Result, error) {
	if o.caller == nil {
		return nil, ConfigurationError{Reason: "no call profile resolvable"}
	}

	o.status.emit(StatusExtracting)

	result, err := o.run(ctx, batch)
	if err != nil {
		o.status.emit(StatusError)
		return nil, err
	}

	o.status.emit(StatusReady)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, batch Batch) (*Result, error) {
	snap, err := storage.LoadOrInit(ctx, o.store, batch.SessionID)
	if err != nil {
		return nil, ExtractionError{TurnIDs: batch.TurnIDs, Err: err}
	}

	if batch.Settings != nil {
		snap.Settings = *batch.Settings
	}

	turns := o.selectTurns(snap, batch)
	if len(turns) == 0 {
		return nil, ExtractionError{TurnIDs: batch.TurnIDs, Err: fmt.Errorf("no turns to extract")}
	}

	turnIDs := make([]int, len(turns))
	for i, t := range turns {
		turnIDs[i] = t.ID
	}

	batchID := uuid.NewString()
	built := prompt.Build(prompt.Params{
		TurnText:              prompt.FormatTurns(turns),
		CharacterName:         batch.CharacterName,
		UserName:              batch.UserName,
		PriorMemories:         o.priorMemories(snap),
		CharacterDescriptions: batch.Descriptions,
		Settings:              snap.Settings,
	})

	response, err := o.caller(ctx, llm.Request{
		System:    systemInstruction,
		Prompt:    built,
		MaxTokens: o.config.MaxResponseTokens,
	})
	if err != nil {
		return nil, ExtractionError{TurnIDs: turnIDs, Err: fmt.Errorf("llm call: %w", err)}
	}

	now := time.Now()
	events, err := event.ParseResponse(llm.StripReasoning(response), event.ParseOptions{
		BatchID:      batchID,
		MessageIDs:   turnIDs,
		BaseSequence: len(snap.Memories),
		Now:          now,
	})
	if err != nil {
		// Parse failure degrades to zero events for this batch. The turns
		// are not marked processed, so a later cycle can retry them.
		o.logger.Warn("extraction response unparseable",
			zap.String("session_id", batch.SessionID),
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return &Result{BatchID: batchID, ParseFailed: true}, nil
	}

	if len(events) > 0 {
		snap.Memories = append(snap.Memories, events...)
		o.propagator.Apply(snap, events, now)
	}

	// The marker advances for both the events path and the parsed-empty
	// path: a clean "nothing significant happened" is terminal.
	snap.LastProcessedMessageID = maxInt(snap.LastProcessedMessageID, maxOf(turnIDs))
	snap.LastExtractionBatch = batchID

	if err := o.store.Save(ctx, batch.SessionID, snap); err != nil {
		return nil, ExtractionError{TurnIDs: turnIDs, Err: fmt.Errorf("persist snapshot: %w", err)}
	}

	o.logger.Info("extraction cycle complete",
		zap.String("session_id", batch.SessionID),
		zap.String("batch_id", batchID),
		zap.Int("events", len(events)),
		zap.Int("messages", len(turnIDs)),
	)

	return &Result{
		BatchID:           batchID,
		EventsCreated:     len(events),
		MessagesProcessed: len(turnIDs),
	}, nil
}

// selectTurns resolves the batch's turn set. Explicit ids win; otherwise the
// most recent unprocessed non-system turns are taken, up to the configured
// count.
func (o *Orchestrator) selectTurns(snap *session.Snapshot, batch Batch) []session.Turn {
	if len(batch.TurnIDs) > 0 {
		wanted := make(map[int]bool, len(batch.TurnIDs))
		for _, id := range batch.TurnIDs {
			wanted[id] = true
		}
		var turns []session.Turn
		for _, t := range batch.Turns {
			if wanted[t.ID] {
				turns = append(turns, t)
			}
		}
		return turns
	}

	var unprocessed []session.Turn
	for _, t := range batch.Turns {
		if t.IsSystem || t.ID <= snap.LastProcessedMessageID {
			continue
		}
		unprocessed = append(unprocessed, t)
	}

	if len(unprocessed) > o.config.MessagesPerExtraction {
		unprocessed = unprocessed[len(unprocessed)-o.config.MessagesPerExtraction:]
	}
	return unprocessed
}

// priorMemories returns the most recent stored summaries, oldest first.
func (o *Orchestrator) priorMemories(snap *session.Snapshot) []string {
	count := o.config.MemoryContextCount
	start := len(snap.Memories) - count
	if start < 0 {
		start = 0
	}

	summaries := make([]string, 0, count)
	for _, ev := range snap.Memories[start:] {
		summaries = append(summaries, ev.Summary)
	}
	return summaries
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxOf(ids []int) int {
	max := 0
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}
