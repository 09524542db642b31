// Package pov filters stored events down to the subset a given character
// could plausibly know.
package pov

import (
	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/session"
)

// Policy configures filtering behavior.
type Policy struct {
	// FailOpen returns the full unfiltered set when the filter would
	// otherwise yield nothing from a non-empty store. This trades POV
	// correctness for recall so retrieval is never silently starved.
	FailOpen bool
}

// DefaultPolicy matches the reference behavior: fail open.
var DefaultPolicy = Policy{FailOpen: true}

// Filter returns the events visible to the named character, preserving store
// order. The second return value reports whether the fail-open fallback
// fired, so callers can tell a real result from a fallback.
//
// An event is visible when the character is a witness, when it is not secret
// and the character is involved, or when the event id is in the character's
// known set. Name comparison is case-insensitive throughout. Secrets are
// never visible through involvement alone.
func Filter(snap *session.Snapshot, viewer string, policy Policy, logger *zap.Logger) ([]*event.Event, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}

	known := knownEventIDs(snap, viewer)

	visible := make([]*event.Event, 0, len(snap.Memories))
	for _, ev := range snap.Memories {
		if isVisible(ev, viewer, known) {
			visible = append(visible, ev)
		}
	}

	if len(visible) == 0 && len(snap.Memories) > 0 && policy.FailOpen {
		logger.Warn("pov filter fell back to full event set",
			zap.String("viewer", viewer),
			zap.Int("events", len(snap.Memories)),
		)
		return append([]*event.Event{}, snap.Memories...), true
	}

	return visible, false
}

func isVisible(ev *event.Event, viewer string, known map[string]bool) bool {
	if event.NameIn(viewer, ev.Witnesses) {
		return true
	}
	if !ev.IsSecret && event.NameIn(viewer, ev.Characters) {
		return true
	}
	return known[ev.ID]
}

// knownEventIDs collects the viewer's known_events set, matching the
// character-state key case-insensitively.
func knownEventIDs(snap *session.Snapshot, viewer string) map[string]bool {
	ids := make(map[string]bool)
	for name, cs := range snap.CharacterStates {
		if !event.NameEqual(name, viewer) {
			continue
		}
		for _, id := range cs.KnownEvents {
			ids[id] = true
		}
	}
	return ids
}
