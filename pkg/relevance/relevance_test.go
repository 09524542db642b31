package relevance_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/relevance"
)

func TestRelevance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Relevance Suite")
}

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var _ = Describe("Score", func() {
	It("scores recency as hours remaining out of ten", func() {
		fresh := &event.Event{CreatedAt: now.Add(-2 * time.Hour)}
		stale := &event.Event{CreatedAt: now.Add(-48 * time.Hour)}

		Expect(relevance.Score(fresh, nil, nil, now)).To(BeNumerically("~", 8.0, 0.01))
		Expect(relevance.Score(stale, nil, nil, now)).To(BeZero())
	})

	It("adds involvement and witness bonuses per active character", func() {
		ev := &event.Event{
			CreatedAt:  now.Add(-10 * time.Hour),
			Characters: []string{"Elara"},
			Witnesses:  []string{"Elara", "Bram"},
		}

		// Elara is both involved and a witness; the bonuses stack.
		Expect(relevance.Score(ev, nil, []string{"Elara"}, now)).To(BeNumerically("==", 8))
		Expect(relevance.Score(ev, nil, []string{"Bram"}, now)).To(BeNumerically("==", 3))
		Expect(relevance.Score(ev, nil, []string{"Elara", "Bram"}, now)).To(BeNumerically("==", 11))
	})

	It("adds a point per matched context keyword", func() {
		ev := &event.Event{
			CreatedAt: now.Add(-10 * time.Hour),
			Summary:   "Elara hid the forged letter in the cellar",
		}

		score := relevance.Score(ev, []string{"cellar", "letter", "dragon"}, nil, now)
		Expect(score).To(BeNumerically("==", 2))
	})

	It("adds type bonuses for revelations and relationship changes", func() {
		rev := &event.Event{CreatedAt: now.Add(-10 * time.Hour), Type: event.TypeRevelation}
		rc := &event.Event{CreatedAt: now.Add(-10 * time.Hour), Type: event.TypeRelationshipChange}
		action := &event.Event{CreatedAt: now.Add(-10 * time.Hour), Type: event.TypeAction}

		Expect(relevance.Score(rev, nil, nil, now)).To(BeNumerically("==", 3))
		Expect(relevance.Score(rc, nil, nil, now)).To(BeNumerically("==", 2))
		Expect(relevance.Score(action, nil, nil, now)).To(BeZero())
	})
})

var _ = Describe("Select", func() {
	It("returns the top events by descending score", func() {
		events := []*event.Event{
			{ID: "old", CreatedAt: now.Add(-9 * time.Hour)},
			{ID: "fresh", CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "middle", CreatedAt: now.Add(-5 * time.Hour)},
		}

		selected := relevance.Select(events, relevance.Params{Now: now, Limit: 2})
		Expect(selected).To(HaveLen(2))
		Expect(selected[0].ID).To(Equal("fresh"))
		Expect(selected[1].ID).To(Equal("middle"))
	})

	It("keeps original order between equal scores", func() {
		events := []*event.Event{
			{ID: "first", CreatedAt: now.Add(-3 * time.Hour)},
			{ID: "second", CreatedAt: now.Add(-3 * time.Hour)},
			{ID: "third", CreatedAt: now.Add(-3 * time.Hour)},
		}

		selected := relevance.Select(events, relevance.Params{Now: now, Limit: 3})
		Expect(selected[0].ID).To(Equal("first"))
		Expect(selected[1].ID).To(Equal("second"))
		Expect(selected[2].ID).To(Equal("third"))
	})

	It("ranks keyword-matched events above fresher unmatched ones", func() {
		events := []*event.Event{
			{ID: "fresh", CreatedAt: now.Add(-2 * time.Hour), Summary: "a quiet morning"},
			{ID: "matched", CreatedAt: now.Add(-4 * time.Hour), Summary: "the cellar held a forged letter"},
		}

		selected := relevance.Select(events, relevance.Params{
			RecentText: "What about the cellar? And that letter, the forged one!",
			Now:        now,
			Limit:      2,
		})
		Expect(selected[0].ID).To(Equal("matched"))
	})

	It("ignores short stopword-sized tokens in the context text", func() {
		events := []*event.Event{
			{ID: "fresher", CreatedAt: now.Add(-1 * time.Hour), Summary: "nothing shared"},
			{ID: "stale", CreatedAt: now.Add(-2 * time.Hour), Summary: "she was at the inn"},
		}

		// Every context word is under the keyword length floor, so the stale
		// event gets no keyword points and recency decides.
		selected := relevance.Select(events, relevance.Params{
			RecentText: "she was at the inn",
			Now:        now,
			Limit:      2,
		})
		Expect(selected[0].ID).To(Equal("fresher"))
	})

	It("returns empty for a zero limit", func() {
		events := []*event.Event{{ID: "a", CreatedAt: now}}
		Expect(relevance.Select(events, relevance.Params{Now: now})).To(BeEmpty())
	})
})
