// Package relevance scores and ranks candidate events against recent
// conversational context.
//
// Scoring is an explicit additive heuristic, not semantic similarity: recent
// events, events touching active characters, keyword overlap with the recent
// text, and inherently notable event types all add points. Approximate by
// design.
package relevance

import (
	"sort"
	"strings"
	"time"

	"github.com/storylore/chronicle/pkg/event"
)

// Weights for the additive score.
const (
	maxRecencyScore         = 10.0
	involvedBonus           = 5.0
	witnessBonus            = 3.0
	keywordBonus            = 1.0
	revelationBonus         = 3.0
	relationshipChangeBonus = 2.0

	// minKeywordLength filters stopword-sized tokens from context text.
	minKeywordLength = 4
)

// Params configures one selection.
type Params struct {
	// RecentText is the recent conversational context to match against.
	RecentText string

	// ActiveCharacters are the names currently present in the scene.
	ActiveCharacters []string

	// Now anchors recency scoring. Fixed inputs and a fixed Now make the
	// selection fully deterministic.
	Now time.Time

	// Limit is the maximum number of events returned.
	Limit int
}

// Select ranks candidates and returns the top Limit by descending score.
// The sort is stable: equal scores keep their original relative order.
func Select(candidates []*event.Event, p Params) []*event.Event {
	if len(candidates) == 0 || p.Limit <= 0 {
		return []*event.Event{}
	}

	type scored struct {
		ev    *event.Event
		score float64
	}

	keywords := contextKeywords(p.RecentText)

	ranked := make([]scored, len(candidates))
	for i, ev := range candidates {
		ranked[i] = scored{ev: ev, score: Score(ev, keywords, p.ActiveCharacters, p.Now)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	limit := p.Limit
	if limit > len(ranked) {
		limit = len(ranked)
	}

	out := make([]*event.Event, limit)
	for i := range out {
		out[i] = ranked[i].ev
	}
	return out
}

// Score computes the additive relevance score for one event.
func Score(ev *event.Event, keywords []string, active []string, now time.Time) float64 {
	score := recencyScore(ev, now)

	// Participant bonuses are per matching active character and stack: a
	// character both involved and witnessing contributes both bonuses.
	for _, name := range active {
		if event.NameIn(name, ev.Characters) {
			score += involvedBonus
		}
		if event.NameIn(name, ev.Witnesses) {
			score += witnessBonus
		}
	}

	summary := strings.ToLower(ev.Summary)
	for _, word := range keywords {
		if strings.Contains(summary, word) {
			score += keywordBonus
		}
	}

	switch ev.Type {
	case event.TypeRevelation:
		score += revelationBonus
	case event.TypeRelationshipChange:
		score += relationshipChangeBonus
	}

	return score
}

func recencyScore(ev *event.Event, now time.Time) float64 {
	ageHours := now.Sub(ev.CreatedAt).Hours()
	score := maxRecencyScore - ageHours
	if score < 0 {
		return 0
	}
	return score
}

// contextKeywords extracts the distinct lower-cased words longer than three
// characters from the recent context text, preserving first-seen order.
func contextKeywords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]{}*_")
		if len(word) < minKeywordLength || seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	return words
}
