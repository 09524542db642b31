// Package session defines the per-conversation memory snapshot: the event
// log plus the derived character and relationship state, along with the
// extraction bookkeeping that makes backfill resumable.
//
// The snapshot is owned by a storage driver and operated on as a whole:
// pipeline stages load it, mutate the in-memory view, and write it back.
// Nothing in this package performs I/O.
package session

import (
	"time"

	"github.com/storylore/chronicle/pkg/event"
)

// Default values for lazily created derived state.
const (
	DefaultEmotion          = "neutral"
	DefaultEmotionIntensity = 5
	DefaultTrustLevel       = 5
	DefaultTensionLevel     = 0
	DefaultRelationshipType = "acquaintance"
)

// Turn is a single conversation message as supplied by the host platform.
// The core never mutates turns.
type Turn struct {
	ID       int    `json:"id"`
	IsSystem bool   `json:"is_system"`
	IsUser   bool   `json:"is_user"`
	Name     string `json:"name"`
	Text     string `json:"mes"`
}

// CharacterState is derived per-character state, keyed by name. The key is
// case-sensitive as stored; consumers match names case-insensitively.
type CharacterState struct {
	CurrentEmotion   string    `json:"current_emotion"`
	EmotionIntensity int       `json:"emotion_intensity"`
	KnownEvents      []string  `json:"known_events"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Knows reports whether the character already knows the given event.
func (c *CharacterState) Knows(eventID string) bool {
	for _, id := range c.KnownEvents {
		if id == eventID {
			return true
		}
	}
	return false
}

// Learn adds an event id to the character's known set. Idempotent: the
// backing slice keeps set semantics.
func (c *CharacterState) Learn(eventID string) {
	if !c.Knows(eventID) {
		c.KnownEvents = append(c.KnownEvents, eventID)
	}
}

// RelationshipEntry is one append-only history record on a relationship.
type RelationshipEntry struct {
	EventID   string    `json:"event_id"`
	Impact    string    `json:"impact"`
	Timestamp time.Time `json:"timestamp"`
}

// Relationship is derived pair state keyed by "A<->B". Pair order is fixed
// by the first-seen direction of an "A -> B" impact key.
type Relationship struct {
	CharacterA       string              `json:"character_a"`
	CharacterB       string              `json:"character_b"`
	TrustLevel       int                 `json:"trust_level"`
	TensionLevel     int                 `json:"tension_level"`
	RelationshipType string              `json:"relationship_type"`
	History          []RelationshipEntry `json:"history"`
}

// Settings is per-session configuration consumed by the prompt builder.
type Settings struct {
	// CardType distinguishes a roleplay character card from a narrator/GM
	// ("scenario") card. For scenario cards the primary character name is a
	// narrator, not a story character.
	CardType string `json:"card_type,omitempty"`

	// CanonicalDateTracking asks the model to attach in-story dates.
	CanonicalDateTracking bool `json:"canonical_date_tracking,omitempty"`

	// NameList is an auxiliary list of known character names.
	NameList []string `json:"name_list,omitempty"`
}

// CardTypeScenario marks narrator/GM cards.
const CardTypeScenario = "scenario"

// Snapshot is the whole stored memory state for one conversation.
type Snapshot struct {
	Memories        []*event.Event             `json:"memories"`
	CharacterStates map[string]*CharacterState `json:"character_states"`
	Relationships   map[string]*Relationship   `json:"relationships"`

	// LastProcessedMessageID is the incremental-extraction high-water mark.
	// It only advances when an extraction cycle completes, including cycles
	// that found no events; a failed cycle leaves it untouched.
	LastProcessedMessageID int `json:"last_processed_message_id"`

	// LastExtractionBatch is the id of the most recent completed batch.
	LastExtractionBatch string `json:"last_extraction_batch,omitempty"`

	// ExtractedBatches records completed backfill batch indices.
	ExtractedBatches []int `json:"extracted_batches"`

	// InjectedContext is the live context block currently injected into the
	// conversation, if any. Cleared after backfill so stale memories are not
	// carried forward.
	InjectedContext string `json:"injected_context,omitempty"`

	Settings Settings `json:"per_chat_settings"`
}

// NewSnapshot returns an empty snapshot with initialized containers.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Memories:         []*event.Event{},
		CharacterStates:  map[string]*CharacterState{},
		Relationships:    map[string]*Relationship{},
		ExtractedBatches: []int{},
	}
}

// Character returns the state for name, lazily creating it with defaults.
// Lookup is case-insensitive; the stored key keeps its first-seen casing.
func (s *Snapshot) Character(name string) *CharacterState {
	if cs, ok := s.CharacterStates[name]; ok {
		return cs
	}
	for key, cs := range s.CharacterStates {
		if event.NameEqual(key, name) {
			return cs
		}
	}

	cs := &CharacterState{
		CurrentEmotion:   DefaultEmotion,
		EmotionIntensity: DefaultEmotionIntensity,
		KnownEvents:      []string{},
	}
	s.CharacterStates[name] = cs
	return cs
}

// ExtractedMessageIDs returns the set of turn ids already covered by stored
// events' message id lists.
func (s *Snapshot) ExtractedMessageIDs() map[int]bool {
	ids := make(map[int]bool)
	for _, ev := range s.Memories {
		for _, id := range ev.MessageIDs {
			ids[id] = true
		}
	}
	return ids
}

// HasBatchIndex reports whether a backfill batch index is already recorded.
func (s *Snapshot) HasBatchIndex(index int) bool {
	for _, i := range s.ExtractedBatches {
		if i == index {
			return true
		}
	}
	return false
}

// RecordBatchIndex adds a completed backfill batch index. Idempotent.
func (s *Snapshot) RecordBatchIndex(index int) {
	if !s.HasBatchIndex(index) {
		s.ExtractedBatches = append(s.ExtractedBatches, index)
	}
}
