package backfill_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/backfill"
	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage/inmemory"
)

func TestBackfill(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Backfill Suite")
}

// fakeRunner records the batches it was handed and fails on selected calls.
type fakeRunner struct {
	calls    []extract.Batch
	failOn   map[int]bool
	perBatch int
}

func (f *fakeRunner) Run(_ context.Context, batch extract.Batch) (*extract.Result, error) {
	index := len(f.calls)
	f.calls = append(f.calls, batch)

	if f.failOn[index] {
		return nil, fmt.Errorf("model unavailable")
	}

	return &extract.Result{
		BatchID:           fmt.Sprintf("batch-%d", index),
		EventsCreated:     f.perBatch,
		MessagesProcessed: len(batch.TurnIDs),
	}, nil
}

func makeTurns(n int) []session.Turn {
	turns := make([]session.Turn, n)
	for i := range turns {
		turns[i] = session.Turn{ID: i + 1, Name: "Elara", Text: fmt.Sprintf("turn %d", i+1)}
	}
	return turns
}

var _ = Describe("Plan", func() {
	ids := func(from, to int) []int {
		var out []int
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	}

	It("reserves the newest turns and defers the short remainder", func() {
		// 23 turns, batch size 5: 18 eligible after the reserve, 15 batched,
		// 3 deferred.
		batches, deferred := backfill.Plan(ids(1, 23), nil, 5)

		Expect(batches).To(HaveLen(3))
		Expect(deferred).To(Equal(3))
		Expect(batches[0]).To(Equal([]int{1, 2, 3, 4, 5}))
		Expect(batches[2]).To(Equal([]int{11, 12, 13, 14, 15}))
	})

	It("skips turns already covered by stored events", func() {
		extracted := map[int]bool{1: true, 2: true, 3: true}
		batches, deferred := backfill.Plan(ids(1, 13), extracted, 5)

		// 13 - 5 reserved = ids 1..8, minus 3 extracted = 5 eligible.
		Expect(batches).To(HaveLen(1))
		Expect(batches[0]).To(Equal([]int{4, 5, 6, 7, 8}))
		Expect(deferred).To(Equal(0))
	})

	It("plans nothing for a conversation shorter than the reserve", func() {
		batches, deferred := backfill.Plan(ids(1, 4), nil, 5)
		Expect(batches).To(BeEmpty())
		Expect(deferred).To(Equal(0))
	})

	It("sorts unordered ids before batching", func() {
		batches, _ := backfill.Plan([]int{12, 3, 1, 9, 2, 7, 5, 4, 6, 8, 11, 10}, nil, 5)
		Expect(batches[0]).To(Equal([]int{1, 2, 3, 4, 5}))
	})
})

var _ = Describe("Scheduler", func() {
	var (
		ctx    context.Context
		store  *inmemory.Driver
		runner *fakeRunner
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		runner = &fakeRunner{failOn: map[int]bool{}, perBatch: 2}
	})

	newScheduler := func() *backfill.Scheduler {
		// MaxRPM is huge so inter-batch delays stay sub-millisecond in tests.
		return backfill.NewScheduler(runner, store, backfill.Options{
			BatchSize: 5,
			MaxRPM:    60000,
		}, nil)
	}

	It("runs every planned batch and accumulates results", func() {
		result, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TotalBatches).To(Equal(3))
		Expect(result.Completed).To(Equal(3))
		Expect(result.Failed).To(Equal(0))
		Expect(result.Deferred).To(Equal(3))
		Expect(result.EventsCreated).To(Equal(6))
		Expect(result.TurnsProcessed).To(Equal(15))

		Expect(runner.calls).To(HaveLen(3))
		Expect(runner.calls[0].TurnIDs).To(Equal([]int{1, 2, 3, 4, 5}))
	})

	It("skips a failed batch and keeps going", func() {
		runner.failOn[1] = true

		result, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Completed).To(Equal(2))
		Expect(result.Failed).To(Equal(1))
		Expect(result.EventsCreated).To(Equal(4))
		Expect(runner.calls).To(HaveLen(3))
	})

	It("records completed batch indices on the snapshot", func() {
		runner.failOn[2] = true

		_, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).NotTo(HaveOccurred())

		snap, err := store.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.ExtractedBatches).To(Equal([]int{0, 1}))
	})

	It("excludes system turns from the plan", func() {
		turns := makeTurns(23)
		turns[0].IsSystem = true

		result, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     turns,
		})
		Expect(err).NotTo(HaveOccurred())

		// 22 usable turns: 17 eligible after the reserve, 15 batched.
		Expect(result.TotalBatches).To(Equal(3))
		Expect(runner.calls[0].TurnIDs).To(Equal([]int{2, 3, 4, 5, 6}))
	})

	It("clears any live injected context after the run", func() {
		snap := session.NewSnapshot()
		snap.InjectedContext = "[Story memory]\nstale"
		Expect(store.Save(ctx, "story-1", snap)).To(Succeed())

		_, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).NotTo(HaveOccurred())

		stored, err := store.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.InjectedContext).To(BeEmpty())
	})

	It("plans around turns already covered by stored events", func() {
		snap := session.NewSnapshot()
		snap.Memories = append(snap.Memories, &event.Event{
			ID:         "ev-1",
			MessageIDs: []int{1, 2, 3, 4, 5},
		})
		Expect(store.Save(ctx, "story-1", snap)).To(Succeed())

		result, err := newScheduler().Run(ctx, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.TotalBatches).To(Equal(2))
		Expect(runner.calls[0].TurnIDs).To(Equal([]int{6, 7, 8, 9, 10}))
	})

	It("stops between batches when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		scheduler := backfill.NewScheduler(runner, store, backfill.Options{
			BatchSize: 5,
			MaxRPM:    1,
		}, nil)

		result, err := scheduler.Run(cancelled, extract.Batch{
			SessionID: "story-1",
			Turns:     makeTurns(23),
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.Completed).To(Equal(1))
	})
})
