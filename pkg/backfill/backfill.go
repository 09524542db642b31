// Package backfill processes a backlog of never-extracted turns in
// fixed-size batches.
//
// Batches are independent units of work: one bad batch is logged and
// skipped, never aborting the run. That trades strict ordering (a failed
// batch leaves a gap) for resilience across a large backlog and an
// unreliable external model call.
package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
)

// BatchRunner runs one extraction cycle. *extract.Orchestrator satisfies it;
// tests substitute failing runners.
type BatchRunner interface {
	Run(ctx context.Context, batch extract.Batch) (*extract.Result, error)
}

// Options configures a backfill run.
type Options struct {
	// BatchSize is the fixed number of turns per batch. The most recent
	// BatchSize turns are never backfilled; they are reserved for normal
	// incremental extraction.
	BatchSize int

	// MaxRPM is the requests-per-minute ceiling for the external model
	// call. The scheduler waits ceil(60000/MaxRPM) milliseconds between
	// consecutive batches.
	MaxRPM int
}

// Scheduler drives the extraction orchestrator across a backlog.
type Scheduler struct {
	runner  BatchRunner
	store   storage.Driver
	options Options
	logger  *zap.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(runner BatchRunner, store storage.Driver, opts Options, logger *zap.Logger) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.MaxRPM <= 0 {
		opts.MaxRPM = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		runner:  runner,
		store:   store,
		options: opts,
		logger:  logger,
	}
}

// Plan computes the batched turn ids for a backlog.
//
// Eligible ids are all turn ids minus those already covered by existing
// events minus the most recent BatchSize ids. The eligible prefix is
// truncated to an exact multiple of the batch size; a short remainder is
// deferred to a future run rather than processed as a partial batch. The
// second return value is the deferred count.
func Plan(turnIDs []int, extracted map[int]bool, batchSize int) ([][]int, int) {
	sorted := append([]int{}, turnIDs...)
	sort.Ints(sorted)

	// Reserve the newest batchSize turns for incremental extraction.
	cutoff := len(sorted) - batchSize
	if cutoff < 0 {
		cutoff = 0
	}

	var eligible []int
	for _, id := range sorted[:cutoff] {
		if !extracted[id] {
			eligible = append(eligible, id)
		}
	}

	deferred := len(eligible) % batchSize
	eligible = eligible[:len(eligible)-deferred]

	batches := make([][]int, 0, len(eligible)/batchSize)
	for start := 0; start < len(eligible); start += batchSize {
		batches = append(batches, eligible[start:start+batchSize])
	}

	return batches, deferred
}

// Run backfills the session's backlog.
//
// Each batch is handed to the runner in index order. A successful batch
// records its index into the snapshot's completed set (idempotently) and
// accumulates its event count; a failed batch is logged and skipped. The
// run finishes by clearing any live context injection and persisting.
func (s *Scheduler) Run(ctx context.Context, batch extract.Batch) (*Result, error) {
	snap, err := storage.LoadOrInit(ctx, s.store, batch.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	turnIDs := make([]int, 0, len(batch.Turns))
	for _, t := range batch.Turns {
		if t.IsSystem {
			continue
		}
		turnIDs = append(turnIDs, t.ID)
	}

	batches, deferred := Plan(turnIDs, snap.ExtractedMessageIDs(), s.options.BatchSize)

	result := &Result{
		TotalBatches: len(batches),
		Deferred:     deferred,
	}

	s.logger.Info("backfill starting",
		zap.String("session_id", batch.SessionID),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", s.options.BatchSize),
		zap.Int("deferred", deferred),
	)

	for index, ids := range batches {
		if index > 0 {
			if err := s.interBatchDelay(ctx); err != nil {
				return result, err
			}
		}

		batchInput := batch
		batchInput.TurnIDs = ids

		batchResult, err := s.runner.Run(ctx, batchInput)
		if err != nil {
			// Batches are independent: log and continue. The gap stays
			// eligible for a future run.
			result.Failed++
			s.logger.Warn("backfill batch failed",
				zap.String("session_id", batch.SessionID),
				zap.Int("batch_index", index),
				zap.Error(err),
			)
			continue
		}

		result.Completed++
		result.EventsCreated += batchResult.EventsCreated
		result.TurnsProcessed += batchResult.MessagesProcessed

		if err := s.recordBatchIndex(ctx, batch.SessionID, index); err != nil {
			s.logger.Warn("failed to record batch index",
				zap.Int("batch_index", index),
				zap.Error(err),
			)
		}
	}

	if err := s.clearInjection(ctx, batch.SessionID); err != nil {
		s.logger.Warn("failed to clear injected context", zap.Error(err))
	}

	s.logger.Info("backfill finished",
		zap.String("session_id", batch.SessionID),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Int("events", result.EventsCreated),
	)

	return result, nil
}

// interBatchDelay waits ceil(60000/MaxRPM) milliseconds, honoring context
// cancellation. The delay is purely external rate limiting, not a
// correctness mechanism.
func (s *Scheduler) interBatchDelay(ctx context.Context) error {
	millis := (60000 + s.options.MaxRPM - 1) / s.options.MaxRPM

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(millis) * time.Millisecond):
		return nil
	}
}

func (s *Scheduler) recordBatchIndex(ctx context.Context, sessionID string, index int) error {
	snap, err := storage.LoadOrInit(ctx, s.store, sessionID)
	if err != nil {
		return err
	}
	snap.RecordBatchIndex(index)
	return s.store.Save(ctx, sessionID, snap)
}

// clearInjection drops the live context injection so stale memories are not
// carried into the next retrieval.
func (s *Scheduler) clearInjection(ctx context.Context, sessionID string) error {
	snap, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if _, ok := err.(storage.ErrNotFound); ok {
			return nil
		}
		return err
	}
	snap.InjectedContext = ""
	return s.store.Save(ctx, sessionID, snap)
}

// EligibleCount reports how many turns a backfill run would cover, without
// running it. Used by the CLI to preview work.
func EligibleCount(snap *session.Snapshot, turnIDs []int, batchSize int) int {
	batches, _ := Plan(turnIDs, snap.ExtractedMessageIDs(), batchSize)
	return len(batches) * batchSize
}
