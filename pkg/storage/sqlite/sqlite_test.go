package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
	"github.com/storylore/chronicle/pkg/storage/sqlite"
)

func TestSQLite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Storage Suite")
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("creates a database file on disk", func() {
		tmpDir := GinkgoT().TempDir()
		dbPath := filepath.Join(tmpDir, "chronicle.db")

		fileDriver, err := sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer fileDriver.Close()

		Expect(fileDriver.Save(ctx, "story-1", session.NewSnapshot())).To(Succeed())
		Expect(dbPath).To(BeAnExistingFile())
	})

	It("round-trips a full snapshot through JSON", func() {
		snap := session.NewSnapshot()
		snap.Memories = append(snap.Memories, &event.Event{
			ID:         "ev-1",
			Type:       event.TypeRevelation,
			Summary:    "the letter is a forgery",
			Witnesses:  []string{"Elara"},
			IsSecret:   true,
			MessageIDs: []int{3, 4},
		})
		snap.Character("Elara").Learn("ev-1")
		snap.Relationships["Elara<->Bram"] = &session.Relationship{
			CharacterA: "Elara", CharacterB: "Bram",
			TrustLevel: 6, RelationshipType: "ally",
		}
		snap.LastProcessedMessageID = 4

		Expect(driver.Save(ctx, "story-1", snap)).To(Succeed())

		loaded, err := driver.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Memories).To(HaveLen(1))
		Expect(loaded.Memories[0].Type).To(Equal(event.TypeRevelation))
		Expect(loaded.Memories[0].IsSecret).To(BeTrue())
		Expect(loaded.Memories[0].MessageIDs).To(Equal([]int{3, 4}))
		Expect(loaded.Character("Elara").Knows("ev-1")).To(BeTrue())
		Expect(loaded.Relationships["Elara<->Bram"].TrustLevel).To(Equal(6))
		Expect(loaded.LastProcessedMessageID).To(Equal(4))
	})

	It("returns ErrNotFound for absent sessions", func() {
		_, err := driver.Load(ctx, "missing")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("upserts on repeated saves", func() {
		first := session.NewSnapshot()
		first.LastProcessedMessageID = 1
		Expect(driver.Save(ctx, "story-1", first)).To(Succeed())

		second := session.NewSnapshot()
		second.LastProcessedMessageID = 9
		Expect(driver.Save(ctx, "story-1", second)).To(Succeed())

		loaded, err := driver.Load(ctx, "story-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.LastProcessedMessageID).To(Equal(9))

		ids, err := driver.Sessions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(HaveLen(1))
	})

	It("deletes sessions", func() {
		Expect(driver.Save(ctx, "story-1", session.NewSnapshot())).To(Succeed())
		Expect(driver.Delete(ctx, "story-1")).To(Succeed())

		_, err := driver.Load(ctx, "story-1")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("lists session ids in sorted order", func() {
		Expect(driver.Save(ctx, "zeta", session.NewSnapshot())).To(Succeed())
		Expect(driver.Save(ctx, "alpha", session.NewSnapshot())).To(Succeed())

		ids, err := driver.Sessions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"alpha", "zeta"}))
	})
})
