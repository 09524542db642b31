package pov_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/pov"
	"github.com/storylore/chronicle/pkg/session"
)

func TestPOV(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "POV Suite")
}

var _ = Describe("Filter", func() {
	var snap *session.Snapshot

	BeforeEach(func() {
		snap = session.NewSnapshot()
	})

	add := func(ev *event.Event) {
		snap.Memories = append(snap.Memories, ev)
	}

	It("shows events the viewer witnessed", func() {
		add(&event.Event{ID: "ev-1", Witnesses: []string{"Elara"}})

		visible, fellBack := pov.Filter(snap, "elara", pov.DefaultPolicy, nil)
		Expect(fellBack).To(BeFalse())
		Expect(visible).To(HaveLen(1))
	})

	It("shows non-secret events the viewer was involved in", func() {
		add(&event.Event{ID: "ev-1", Characters: []string{"Elara"}, Witnesses: []string{"Bram"}})

		visible, _ := pov.Filter(snap, "Elara", pov.Policy{}, nil)
		Expect(visible).To(HaveLen(1))
	})

	It("hides secrets from involved non-witnesses", func() {
		add(&event.Event{
			ID:         "ev-1",
			IsSecret:   true,
			Characters: []string{"Elara", "Bram"},
			Witnesses:  []string{"Bram"},
		})

		visible, _ := pov.Filter(snap, "Elara", pov.Policy{}, nil)
		Expect(visible).To(BeEmpty())

		visible, _ = pov.Filter(snap, "Bram", pov.Policy{}, nil)
		Expect(visible).To(HaveLen(1))
	})

	It("shows events the viewer learned about later", func() {
		add(&event.Event{ID: "ev-1", Characters: []string{"Bram"}, Witnesses: []string{"Bram"}})
		snap.Character("Elara").Learn("ev-1")

		visible, _ := pov.Filter(snap, "ELARA", pov.Policy{}, nil)
		Expect(visible).To(HaveLen(1))
	})

	It("preserves store order", func() {
		add(&event.Event{ID: "ev-1", Witnesses: []string{"Elara"}})
		add(&event.Event{ID: "ev-2", Witnesses: []string{"Bram"}})
		add(&event.Event{ID: "ev-3", Witnesses: []string{"Elara"}})

		visible, _ := pov.Filter(snap, "Elara", pov.Policy{}, nil)
		Expect(visible).To(HaveLen(2))
		Expect(visible[0].ID).To(Equal("ev-1"))
		Expect(visible[1].ID).To(Equal("ev-3"))
	})

	Describe("fail-open fallback", func() {
		BeforeEach(func() {
			add(&event.Event{ID: "ev-1", Witnesses: []string{"Bram"}})
			add(&event.Event{ID: "ev-2", Witnesses: []string{"Bram"}})
		})

		It("returns the full set and signals the fallback", func() {
			visible, fellBack := pov.Filter(snap, "Stranger", pov.Policy{FailOpen: true}, nil)
			Expect(fellBack).To(BeTrue())
			Expect(visible).To(HaveLen(2))
		})

		It("returns nothing when configured to fail closed", func() {
			visible, fellBack := pov.Filter(snap, "Stranger", pov.Policy{FailOpen: false}, nil)
			Expect(fellBack).To(BeFalse())
			Expect(visible).To(BeEmpty())
		})

		It("does not fire on an empty store", func() {
			empty := session.NewSnapshot()
			visible, fellBack := pov.Filter(empty, "Elara", pov.Policy{FailOpen: true}, nil)
			Expect(fellBack).To(BeFalse())
			Expect(visible).To(BeEmpty())
		})
	})
})
