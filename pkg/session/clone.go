package session

import "github.com/storylore/chronicle/pkg/event"

// Clone returns a deep copy of the snapshot. Storage drivers hand out clones
// so callers never alias stored state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	out := &Snapshot{
		Memories:               make([]*event.Event, len(s.Memories)),
		CharacterStates:        make(map[string]*CharacterState, len(s.CharacterStates)),
		Relationships:          make(map[string]*Relationship, len(s.Relationships)),
		LastProcessedMessageID: s.LastProcessedMessageID,
		LastExtractionBatch:    s.LastExtractionBatch,
		ExtractedBatches:       append([]int{}, s.ExtractedBatches...),
		InjectedContext:        s.InjectedContext,
		Settings:               s.Settings,
	}
	out.Settings.NameList = append([]string(nil), s.Settings.NameList...)

	for i, ev := range s.Memories {
		out.Memories[i] = cloneEvent(ev)
	}
	for name, cs := range s.CharacterStates {
		out.CharacterStates[name] = &CharacterState{
			CurrentEmotion:   cs.CurrentEmotion,
			EmotionIntensity: cs.EmotionIntensity,
			KnownEvents:      append([]string{}, cs.KnownEvents...),
			LastUpdated:      cs.LastUpdated,
		}
	}
	for key, rel := range s.Relationships {
		out.Relationships[key] = &Relationship{
			CharacterA:       rel.CharacterA,
			CharacterB:       rel.CharacterB,
			TrustLevel:       rel.TrustLevel,
			TensionLevel:     rel.TensionLevel,
			RelationshipType: rel.RelationshipType,
			History:          append([]RelationshipEntry{}, rel.History...),
		}
	}

	return out
}

func cloneEvent(ev *event.Event) *event.Event {
	if ev == nil {
		return nil
	}
	out := *ev
	out.Characters = append([]string{}, ev.Characters...)
	out.Witnesses = append([]string{}, ev.Witnesses...)
	out.MessageIDs = append([]int{}, ev.MessageIDs...)
	out.EmotionalImpact = make(map[string]string, len(ev.EmotionalImpact))
	for k, v := range ev.EmotionalImpact {
		out.EmotionalImpact[k] = v
	}
	out.RelationshipImpact = make(map[string]string, len(ev.RelationshipImpact))
	for k, v := range ev.RelationshipImpact {
		out.RelationshipImpact[k] = v
	}
	return &out
}
