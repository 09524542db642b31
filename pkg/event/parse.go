package event

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fencedBlockRegex matches a markdown code fence and captures its body.
// Models frequently wrap JSON output in ```json ... ``` despite instructions.
var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseError indicates the model response could not be parsed into events.
// Callers treat this as "zero events extracted" rather than a fatal failure,
// but must not advance the processed-turn marker for the batch.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return "unparseable extraction response: " + e.Err.Error()
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// ParseOptions carries the batch context attached to every parsed event.
type ParseOptions struct {
	// BatchID is the originating extraction batch id.
	BatchID string

	// MessageIDs are the source turn ids covered by the batch. Every event
	// parsed from the response is stamped with the full set.
	MessageIDs []int

	// BaseSequence is the extraction-order counter to continue from,
	// typically the number of events already in the store.
	BaseSequence int

	// Now is the creation timestamp for all parsed events.
	Now time.Time
}

// rawEvent is the wire schema the model is asked to produce. All fields are
// optional; normalization fills defaults.
type rawEvent struct {
	EventType          string            `json:"event_type"`
	Importance         int               `json:"importance"`
	Summary            string            `json:"summary"`
	CharactersInvolved []string          `json:"characters_involved"`
	Witnesses          []string          `json:"witnesses"`
	Location           string            `json:"location"`
	CanonicalDate      string            `json:"canonical_date"`
	IsSecret           bool              `json:"is_secret"`
	EmotionalImpact    map[string]string `json:"emotional_impact"`
	RelationshipImpact map[string]string `json:"relationship_impact"`
}

// ParseResponse extracts events from a raw model response.
//
// The JSON payload is located by first searching for a fenced code block and
// falling back to the raw text. Both a single object and an array of objects
// are accepted. A response that cannot be parsed returns an empty slice and a
// ParseError; no partial events are ever returned.
func ParseResponse(response string, opts ParseOptions) ([]*Event, error) {
	payload := extractJSONPayload(response)

	raws, err := decodeRawEvents(payload)
	if err != nil {
		return nil, ParseError{Err: err}
	}

	events := make([]*Event, 0, len(raws))
	for i, raw := range raws {
		events = append(events, normalize(raw, opts, opts.BaseSequence+i))
	}

	return events, nil
}

// extractJSONPayload locates the JSON portion of a model response. Fenced
// code blocks win; otherwise the widest brace- or bracket-delimited span is
// used; otherwise the raw text is returned for the decoder to reject.
func extractJSONPayload(response string) string {
	if m := fencedBlockRegex.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	trimmed := strings.TrimSpace(response)

	start := strings.IndexAny(trimmed, "[{")
	if start < 0 {
		return trimmed
	}

	var end int
	if trimmed[start] == '[' {
		end = strings.LastIndex(trimmed, "]")
	} else {
		end = strings.LastIndex(trimmed, "}")
	}
	if end > start {
		return trimmed[start : end+1]
	}

	return trimmed
}

func decodeRawEvents(payload string) ([]rawEvent, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Accept either a JSON array or a single object.
	if strings.HasPrefix(trimmed, "[") {
		var raws []rawEvent
		if err := json.Unmarshal([]byte(trimmed), &raws); err != nil {
			return nil, fmt.Errorf("unmarshal event array: %w", err)
		}
		return raws, nil
	}

	var raw rawEvent
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal event object: %w", err)
	}
	return []rawEvent{raw}, nil
}

// normalize fills defaults and stamps batch context onto a raw event.
func normalize(raw rawEvent, opts ParseOptions, sequence int) *Event {
	ev := &Event{
		ID:                 uuid.NewString(),
		Type:               Type(raw.EventType),
		Importance:         raw.Importance,
		Summary:            raw.Summary,
		Characters:         raw.CharactersInvolved,
		Witnesses:          raw.Witnesses,
		Location:           raw.Location,
		CanonicalDate:      raw.CanonicalDate,
		IsSecret:           raw.IsSecret,
		EmotionalImpact:    raw.EmotionalImpact,
		RelationshipImpact: raw.RelationshipImpact,
		MessageIDs:         append([]int(nil), opts.MessageIDs...),
		CreatedAt:          opts.Now,
		Sequence:           sequence,
		BatchID:            opts.BatchID,
	}

	if ev.Characters == nil {
		ev.Characters = []string{}
	}
	// Witnesses default to the involved characters when omitted.
	if len(ev.Witnesses) == 0 {
		ev.Witnesses = append([]string{}, ev.Characters...)
	}
	if ev.Location == "" {
		ev.Location = "unknown"
	}
	if ev.EmotionalImpact == nil {
		ev.EmotionalImpact = map[string]string{}
	}
	if ev.RelationshipImpact == nil {
		ev.RelationshipImpact = map[string]string{}
	}

	return ev
}
