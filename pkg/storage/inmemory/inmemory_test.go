package inmemory_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
	"github.com/storylore/chronicle/pkg/storage/inmemory"
)

func TestInMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "In-Memory Storage Suite")
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	It("round-trips a snapshot", func() {
		snap := session.NewSnapshot()
		snap.Memories = append(snap.Memories, &event.Event{ID: "ev-1", Summary: "stored"})

		Expect(driver.Save(ctx, "story-1", snap)).To(Succeed())

		loaded, err := driver.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Memories).To(HaveLen(1))
		Expect(loaded.Memories[0].Summary).To(Equal("stored"))
	})

	It("returns ErrNotFound for absent sessions", func() {
		_, err := driver.Load(ctx, "missing")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("stores and returns clones so callers never alias stored state", func() {
		snap := session.NewSnapshot()
		snap.Character("Elara").CurrentEmotion = "wary"
		Expect(driver.Save(ctx, "story-1", snap)).To(Succeed())

		// Mutating the saved-in object must not affect the store.
		snap.Character("Elara").CurrentEmotion = "furious"

		loaded, err := driver.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Character("Elara").CurrentEmotion).To(Equal("wary"))

		// Mutating a loaded copy must not affect later loads.
		loaded.Character("Elara").CurrentEmotion = "calm"
		again, err := driver.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Character("Elara").CurrentEmotion).To(Equal("wary"))
	})

	It("rejects nil snapshots", func() {
		Expect(driver.Save(ctx, "story-1", nil)).NotTo(Succeed())
	})

	It("deletes sessions, tolerating absent ids", func() {
		Expect(driver.Save(ctx, "story-1", session.NewSnapshot())).To(Succeed())
		Expect(driver.Delete(ctx, "story-1")).To(Succeed())
		Expect(driver.Delete(ctx, "story-1")).To(Succeed())

		_, err := driver.Load(ctx, "story-1")
		Expect(err).To(HaveOccurred())
	})

	It("lists session ids in sorted order", func() {
		Expect(driver.Save(ctx, "zeta", session.NewSnapshot())).To(Succeed())
		Expect(driver.Save(ctx, "alpha", session.NewSnapshot())).To(Succeed())

		ids, err := driver.Sessions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"alpha", "zeta"}))
	})
})

var _ = Describe("LoadOrInit", func() {
	It("returns a fresh snapshot for an absent session", func() {
		driver := inmemory.NewDriver()

		snap, err := storage.LoadOrInit(context.Background(), driver, "new-story")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap).NotTo(BeNil())
		Expect(snap.Memories).To(BeEmpty())
	})

	It("returns the stored snapshot when present", func() {
		ctx := context.Background()
		driver := inmemory.NewDriver()

		stored := session.NewSnapshot()
		stored.LastProcessedMessageID = 7
		Expect(driver.Save(ctx, "story-1", stored)).To(Succeed())

		snap, err := storage.LoadOrInit(ctx, driver, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.LastProcessedMessageID).To(Equal(7))
	})
})
