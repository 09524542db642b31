package event_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
)

var _ = Describe("name matching", func() {
	It("compares names case-insensitively", func() {
		Expect(event.NameEqual("Elara", "elara")).To(BeTrue())
		Expect(event.NameEqual("  Elara ", "ELARA")).To(BeTrue())
		Expect(event.NameEqual("Elara", "Bram")).To(BeFalse())
	})

	It("finds names in lists regardless of casing", func() {
		Expect(event.NameIn("BRAM", []string{"Elara", "Bram"})).To(BeTrue())
		Expect(event.NameIn("Innkeeper", []string{"Elara", "Bram"})).To(BeFalse())
	})
})

var _ = Describe("Event participation", func() {
	ev := &event.Event{
		Characters: []string{"Elara", "Bram"},
		Witnesses:  []string{"Innkeeper"},
	}

	It("matches involvement against any active name", func() {
		Expect(ev.InvolvesAny([]string{"nobody", "bram"})).To(BeTrue())
		Expect(ev.InvolvesAny([]string{"Innkeeper"})).To(BeFalse())
	})

	It("matches witnesses against any active name", func() {
		Expect(ev.WitnessedByAny([]string{"innkeeper"})).To(BeTrue())
		Expect(ev.WitnessedByAny([]string{"Elara"})).To(BeFalse())
	})
})
