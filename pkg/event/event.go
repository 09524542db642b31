// Package event defines the memory event model and the parser that turns raw
// model output into validated events.
//
// Events are immutable once created: the id, message ids, and creation
// timestamp never change after normalization. Everything else in the system
// (character emotions, relationship graphs, injected context) is derived from
// the event log.
package event

import "time"

// Type classifies what kind of story fact an event records.
type Type string

const (
	// TypeAction is something a character did.
	TypeAction Type = "action"

	// TypeRevelation is information coming to light.
	TypeRevelation Type = "revelation"

	// TypeEmotionShift is a change in a character's emotional state.
	TypeEmotionShift Type = "emotion_shift"

	// TypeRelationshipChange is a shift in how two characters relate.
	TypeRelationshipChange Type = "relationship_change"
)

// Event is a single extracted story fact.
//
// Characters and Witnesses are name lists; Witnesses defaults to Characters
// when the model omits it. EmotionalImpact maps character name to a free-text
// emotion description. RelationshipImpact maps "A -> B" keys to free-text
// impact descriptions; the propagator parses those keys.
type Event struct {
	ID         string `json:"id"`
	Type       Type   `json:"event_type"`
	Importance int    `json:"importance,omitempty"`
	Summary    string `json:"summary"`

	Characters []string `json:"characters_involved"`
	Witnesses  []string `json:"witnesses"`

	Location      string `json:"location"`
	CanonicalDate string `json:"canonical_date,omitempty"`
	IsSecret      bool   `json:"is_secret"`

	EmotionalImpact    map[string]string `json:"emotional_impact"`
	RelationshipImpact map[string]string `json:"relationship_impact"`

	// MessageIDs are the source turn ids this event was extracted from.
	MessageIDs []int `json:"message_ids"`

	CreatedAt time.Time `json:"created_at"`

	// Sequence is the monotonic extraction order, used to break chronological
	// sort ties between events created in the same batch.
	Sequence int `json:"sequence"`

	// BatchID identifies the extraction batch that produced this event.
	BatchID string `json:"batch_id"`
}

// InvolvesAny reports whether any of the given names appears in the
// characters_involved list. Name comparison is case-insensitive.
func (e *Event) InvolvesAny(names []string) bool {
	return anyNameIn(names, e.Characters)
}

// WitnessedByAny reports whether any of the given names appears in the
// witness list. Name comparison is case-insensitive.
func (e *Event) WitnessedByAny(names []string) bool {
	return anyNameIn(names, e.Witnesses)
}
