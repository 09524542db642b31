// Package propagate applies newly extracted events to the derived
// character-state and relationship stores.
//
// Propagation mutates the in-memory snapshot only; persisting the result is
// the caller's responsibility. Known-event membership is idempotent, but
// trust/tension deltas and relationship history are not: propagating the same
// event twice double-counts, so callers must run each event exactly once.
package propagate

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storylore/chronicle/pkg/event"
	"github.com/storylore/chronicle/pkg/session"
)

// relationKeyRegex parses "A -> B" impact keys, tolerating whitespace
// around the arrow. Keys that don't match are skipped silently.
var relationKeyRegex = regexp.MustCompile(`^\s*(.+?)\s*->\s*(.+?)\s*$`)

// Propagator applies events to a session snapshot.
type Propagator struct {
	heuristic Heuristic
	logger    *zap.Logger
}

// New creates a Propagator. A nil heuristic gets the keyword default; a nil
// logger gets a no-op logger.
func New(heuristic Heuristic, logger *zap.Logger) *Propagator {
	if heuristic == nil {
		heuristic = KeywordHeuristic{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{heuristic: heuristic, logger: logger}
}

// Apply propagates each event into the snapshot's derived state, in order.
func (p *Propagator) Apply(snap *session.Snapshot, events []*event.Event, now time.Time) {
	for _, ev := range events {
		p.applyOne(snap, ev, now)
	}
}

func (p *Propagator) applyOne(snap *session.Snapshot, ev *event.Event, now time.Time) {
	// Emotional impact sets the current emotion text. Intensity is left
	// alone; only the emotion description tracks the event stream.
	for name, emotion := range ev.EmotionalImpact {
		cs := snap.Character(name)
		cs.CurrentEmotion = emotion
		cs.LastUpdated = now
	}

	// Witnesses learn the event. Learn is a set insert, so re-running this
	// step is harmless.
	for _, witness := range ev.Witnesses {
		cs := snap.Character(witness)
		cs.Learn(ev.ID)
		cs.LastUpdated = now
	}

	for key, impact := range ev.RelationshipImpact {
		a, b, ok := ParseRelationKey(key)
		if !ok {
			p.logger.Debug("skipping malformed relationship key",
				zap.String("key", key),
				zap.String("event_id", ev.ID),
			)
			continue
		}

		rel := p.relationship(snap, a, b)
		p.heuristic.Adjust(rel, impact)

		// History is appended unconditionally, even when no numeric field
		// moved: the free-text impact is part of the record.
		rel.History = append(rel.History, session.RelationshipEntry{
			EventID:   ev.ID,
			Impact:    impact,
			Timestamp: now,
		})
	}
}

// ParseRelationKey splits an "A -> B" key into its two names. Returns
// ok=false when the key has no arrow or an empty side.
func ParseRelationKey(key string) (a, b string, ok bool) {
	m := relationKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// PairKey derives the canonical "A<->B" relationship key.
func PairKey(a, b string) string {
	return a + "<->" + b
}

// relationship finds or lazily creates the relationship for an (a, b) pair.
// Pair order is fixed by the first-seen direction: "B -> A" later resolves
// to the same record created for "A -> B".
func (p *Propagator) relationship(snap *session.Snapshot, a, b string) *session.Relationship {
	if rel, ok := snap.Relationships[PairKey(a, b)]; ok {
		return rel
	}
	if rel, ok := snap.Relationships[PairKey(b, a)]; ok {
		return rel
	}

	// Case-insensitive scan for pairs stored under different casing.
	for _, rel := range snap.Relationships {
		if (event.NameEqual(rel.CharacterA, a) && event.NameEqual(rel.CharacterB, b)) ||
			(event.NameEqual(rel.CharacterA, b) && event.NameEqual(rel.CharacterB, a)) {
			return rel
		}
	}

	rel := &session.Relationship{
		CharacterA:       a,
		CharacterB:       b,
		TrustLevel:       session.DefaultTrustLevel,
		TensionLevel:     session.DefaultTensionLevel,
		RelationshipType: session.DefaultRelationshipType,
		History:          []session.RelationshipEntry{},
	}
	snap.Relationships[PairKey(a, b)] = rel
	return rel
}

// Heuristic adjusts a relationship's numeric levels from a free-text impact
// description. It is a pluggable strategy so the keyword matcher can be
// swapped for a stricter parser without touching the propagation contract.
type Heuristic interface {
	Adjust(rel *session.Relationship, impact string)
}

// KeywordHeuristic is the default strategy: substring matching on the
// lower-cased impact text. "trust" plus an increase/decrease word moves
// trust by one; same for "tension". Levels clamp to [0, 10]. This is a
// deliberate approximation, not NLP.
type KeywordHeuristic struct{}

// Adjust implements Heuristic.
func (KeywordHeuristic) Adjust(rel *session.Relationship, impact string) {
	text := strings.ToLower(impact)

	if strings.Contains(text, "trust") {
		if strings.Contains(text, "increas") {
			rel.TrustLevel = clamp(rel.TrustLevel + 1)
		} else if strings.Contains(text, "decreas") {
			rel.TrustLevel = clamp(rel.TrustLevel - 1)
		}
	}
	if strings.Contains(text, "tension") {
		if strings.Contains(text, "increas") {
			rel.TensionLevel = clamp(rel.TensionLevel + 1)
		} else if strings.Contains(text, "decreas") {
			rel.TensionLevel = clamp(rel.TensionLevel - 1)
		}
	}
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > 10 {
		return 10
	}
	return level
}
