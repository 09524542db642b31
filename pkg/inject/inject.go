// Package inject renders a selected memory set, relationship summaries, and
// the viewer's current emotion into a bounded-size text block ready for
// context injection.
package inject

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/session"
)

const (
	// headerOverheadTokens reserves room for section headers and the
	// relationship/emotion summary lines during shrink-to-fit.
	headerOverheadTokens = 50

	// perMemoryOverheadTokens is the fixed per-line cost beyond the summary
	// text itself (bullet, location suffix, newline).
	perMemoryOverheadTokens = 5

	// maxShrinkAttempts bounds the shrink loop. The reference design
	// re-rendered recursively with a doubled budget; an explicit iteration
	// cap makes termination obvious instead of relying on the doubling.
	maxShrinkAttempts = 3
)

// Params configures one render.
type Params struct {
	// Viewer is the character whose perspective the block is written for.
	Viewer string

	// TokenBudget is the target size. Token counts are estimated as
	// characters divided by four, so the fit is approximate.
	TokenBudget int
}

// Format renders the memory block for the viewer, shrinking the memory list
// until the estimate fits the budget or the attempt cap is reached.
//
// Each shrink pass greedily re-picks memories in their existing order under
// a per-memory cost model, then re-renders against a doubled budget ceiling.
// The doubling is a safety valve: the reduced list is what actually shrinks
// the output, and the looser ceiling guarantees the loop makes progress.
func Format(memories []*event.Event, snap *session.Snapshot, p Params, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	budget := p.TokenBudget
	selected := memories

	for attempt := 0; ; attempt++ {
		text := render(selected, snap, p.Viewer)
		estimate := EstimateTokens(text)

		if estimate <= budget || attempt >= maxShrinkAttempts || len(selected) == 0 {
			if estimate > budget {
				logger.Debug("context block still over budget after shrinking",
					zap.Int("estimate", estimate),
					zap.Int("budget", p.TokenBudget),
					zap.Int("memories", len(selected)),
				)
			}
			return text
		}

		reduced := fitMemories(selected, budget)
		if len(reduced) == len(selected) {
			// The memory list is not what is over budget; nothing further
			// to trim.
			return text
		}
		selected = reduced
		budget *= 2
	}
}

// EstimateTokens approximates the token count of text as len/4.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// fitMemories greedily keeps memories, in order, while the running cost
// stays within the budget minus the fixed header overhead.
func fitMemories(memories []*event.Event, budget int) []*event.Event {
	available := budget - headerOverheadTokens
	kept := make([]*event.Event, 0, len(memories))
	used := 0

	for _, ev := range memories {
		cost := len(ev.Summary)/4 + perMemoryOverheadTokens
		if used+cost > available {
			break
		}
		kept = append(kept, ev)
		used += cost
	}

	return kept
}

func render(memories []*event.Event, snap *session.Snapshot, viewer string) string {
	var b strings.Builder

	b.WriteString("[Story memory]\n")

	if len(memories) > 0 {
		b.WriteString("Key events:\n")
		for _, ev := range memories {
			b.WriteString("- ")
			b.WriteString(ev.Summary)
			if ev.Location != "" && ev.Location != "unknown" {
				fmt.Fprintf(&b, " (at %s)", ev.Location)
			}
			if ev.CanonicalDate != "" {
				fmt.Fprintf(&b, " [%s]", ev.CanonicalDate)
			}
			b.WriteString("\n")
		}
	}

	if line := relationshipLines(snap, viewer); line != "" {
		b.WriteString("Relationships:\n")
		b.WriteString(line)
	}

	if emotion := viewerEmotion(snap, viewer); emotion != "" {
		fmt.Fprintf(&b, "%s's current emotional state: %s\n", viewer, emotion)
	}

	return b.String()
}

// relationshipLines renders the viewer's relationships with qualitative
// trust and tension labels.
func relationshipLines(snap *session.Snapshot, viewer string) string {
	var b strings.Builder

	for _, rel := range sortedRelationships(snap) {
		var other string
		switch {
		case event.NameEqual(rel.CharacterA, viewer):
			other = rel.CharacterB
		case event.NameEqual(rel.CharacterB, viewer):
			other = rel.CharacterA
		default:
			continue
		}

		labels := []string{TrustLabel(rel.TrustLevel)}
		if tension := TensionLabel(rel.TensionLevel); tension != "" {
			labels = append(labels, tension)
		}

		fmt.Fprintf(&b, "- %s and %s: %s (%s)\n",
			viewer, other, rel.RelationshipType, strings.Join(labels, ", "))
	}

	return b.String()
}

// TrustLabel maps a trust level to its qualitative description.
func TrustLabel(level int) string {
	switch {
	case level >= 7:
		return "high trust"
	case level <= 3:
		return "low trust"
	default:
		return "moderate trust"
	}
}

// TensionLabel maps a tension level to its qualitative description. Low
// tension is omitted from output entirely.
func TensionLabel(level int) string {
	switch {
	case level >= 7:
		return "high tension"
	case level >= 4:
		return "some tension"
	default:
		return ""
	}
}

func viewerEmotion(snap *session.Snapshot, viewer string) string {
	for name, cs := range snap.CharacterStates {
		if event.NameEqual(name, viewer) && cs.CurrentEmotion != "" {
			return cs.CurrentEmotion
		}
	}
	return ""
}
