package event_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
)

func TestEvent(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Event Suite")
}

var parseOpts = event.ParseOptions{
	BatchID:      "batch-1",
	MessageIDs:   []int{4, 5, 6},
	BaseSequence: 2,
	Now:          time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
}

var _ = Describe("ParseResponse", func() {
	It("parses a bare JSON array", func() {
		events, err := event.ParseResponse(`[
			{"event_type": "action", "importance": 7, "summary": "Elara draws her blade",
			 "characters_involved": ["Elara", "Bram"], "witnesses": ["Elara", "Bram", "Innkeeper"]}
		]`, parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))

		ev := events[0]
		Expect(ev.Type).To(Equal(event.TypeAction))
		Expect(ev.Importance).To(Equal(7))
		Expect(ev.Summary).To(Equal("Elara draws her blade"))
		Expect(ev.Characters).To(Equal([]string{"Elara", "Bram"}))
		Expect(ev.Witnesses).To(Equal([]string{"Elara", "Bram", "Innkeeper"}))
	})

	It("parses JSON wrapped in a markdown fence", func() {
		response := "Here are the events:\n```json\n" +
			`[{"event_type": "revelation", "summary": "The letter is a forgery"}]` +
			"\n```\nLet me know if you need more."
		events, err := event.ParseResponse(response, parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Type).To(Equal(event.TypeRevelation))
	})

	It("parses a fence without a language tag", func() {
		response := "```\n[{\"summary\": \"untagged\"}]\n```"
		events, err := event.ParseResponse(response, parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Summary).To(Equal("untagged"))
	})

	It("accepts a single object in place of an array", func() {
		events, err := event.ParseResponse(`{"event_type": "action", "summary": "solo"}`, parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
	})

	It("recovers the JSON span from surrounding prose", func() {
		response := `Sure! The extracted events are [{"summary": "buried in prose"}] as requested.`
		events, err := event.ParseResponse(response, parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Summary).To(Equal("buried in prose"))
	})

	It("returns a ParseError for non-JSON text", func() {
		_, err := event.ParseResponse("I could not find any events in this excerpt.", parseOpts)
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(event.ParseError{}))
	})

	It("returns a ParseError for an empty response", func() {
		_, err := event.ParseResponse("   ", parseOpts)
		Expect(err).To(BeAssignableToTypeOf(event.ParseError{}))
	})

	It("parses an empty array as zero events, not an error", func() {
		events, err := event.ParseResponse("[]", parseOpts)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	Describe("normalization", func() {
		It("defaults witnesses to the involved characters", func() {
			events, err := event.ParseResponse(
				`[{"summary": "quiet exchange", "characters_involved": ["Elara", "Bram"]}]`, parseOpts)
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0].Witnesses).To(Equal([]string{"Elara", "Bram"}))
		})

		It("defaults the location to unknown", func() {
			events, err := event.ParseResponse(`[{"summary": "somewhere"}]`, parseOpts)
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0].Location).To(Equal("unknown"))
		})

		It("initializes impact maps so callers can range freely", func() {
			events, err := event.ParseResponse(`[{"summary": "bare"}]`, parseOpts)
			Expect(err).NotTo(HaveOccurred())
			Expect(events[0].EmotionalImpact).NotTo(BeNil())
			Expect(events[0].RelationshipImpact).NotTo(BeNil())
		})

		It("stamps batch context and sequential ordering", func() {
			events, err := event.ParseResponse(
				`[{"summary": "first"}, {"summary": "second"}]`, parseOpts)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))

			Expect(events[0].BatchID).To(Equal("batch-1"))
			Expect(events[0].MessageIDs).To(Equal([]int{4, 5, 6}))
			Expect(events[0].Sequence).To(Equal(2))
			Expect(events[1].Sequence).To(Equal(3))
			Expect(events[0].CreatedAt).To(Equal(parseOpts.Now))
			Expect(events[0].ID).NotTo(BeEmpty())
			Expect(events[0].ID).NotTo(Equal(events[1].ID))
		})
	})
})
