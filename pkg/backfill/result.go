package backfill

import "fmt"

// Result contains statistics from a backfill run.
type Result struct {
	TotalBatches   int
	Completed      int
	Failed         int
	EventsCreated  int
	TurnsProcessed int
	Deferred       int
}

// Summary returns a human-readable summary of the backfill result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Backfill complete: %d/%d batches succeeded, %d failed\n"+
			"Extracted %d events from %d turns (%d turns deferred to a future run)",
		r.Completed, r.TotalBatches, r.Failed,
		r.EventsCreated, r.TurnsProcessed,
		r.Deferred,
	)
}
