// Package prompt builds the extraction instruction sent to the language
// model. Building a prompt is a pure transformation: same inputs, same
// string, no side effects.
package prompt

import (
	"fmt"
	"strings"

	"github.com/storylore/chronicle/pkg/session"
)

// Params collects everything the builder needs for one batch.
type Params struct {
	// TurnText is the formatted conversation excerpt to extract from.
	TurnText string

	// CharacterName is the primary character (or narrator, for scenario
	// cards) of the conversation.
	CharacterName string

	// UserName is the name the user speaks as.
	UserName string

	// PriorMemories are summaries of already-extracted events, ordered
	// oldest to newest, given to the model to avoid duplicate extraction.
	PriorMemories []string

	// CharacterDescriptions are optional persona descriptions.
	CharacterDescriptions []string

	// Settings is the per-session configuration.
	Settings session.Settings
}

// FormatTurns renders turns as "Name: text" lines, skipping system turns.
func FormatTurns(turns []session.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		if turn.IsSystem {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", turn.Name, turn.Text)
	}
	return b.String()
}

// Build assembles the extraction instruction string.
//
// The model is asked for a JSON array of event objects with a fixed schema.
// The canonical_date field is requested only when date tracking is enabled.
// For scenario/GM cards the primary character's name is left out of the
// character list so the narrator is not misread as a story character.
func Build(p Params) string {
	var b strings.Builder

	b.WriteString("Analyze this roleplay conversation excerpt and extract significant story events.\n")
	b.WriteString("Return ONLY a valid JSON array of event objects with these fields:\n\n")

	b.WriteString("[\n  {\n")
	b.WriteString("    \"event_type\": \"one of: action, revelation, emotion_shift, relationship_change\",\n")
	b.WriteString("    \"importance\": \"1-5, how consequential the event is to the story\",\n")
	b.WriteString("    \"summary\": \"1-2 sentence factual summary of what happened\",\n")
	b.WriteString("    \"characters_involved\": [\"names of characters who took part\"],\n")
	b.WriteString("    \"witnesses\": [\"names of characters who saw or heard it, if different\"],\n")
	b.WriteString("    \"location\": \"where it happened, if stated\",\n")
	if p.Settings.CanonicalDateTracking {
		b.WriteString("    \"canonical_date\": \"in-story date of the event, if it can be determined\",\n")
	}
	b.WriteString("    \"is_secret\": \"true if the event is hidden from characters not present\",\n")
	b.WriteString("    \"emotional_impact\": {\"character name\": \"how the event changed their emotional state\"},\n")
	b.WriteString("    \"relationship_impact\": {\"A -> B\": \"how A's view of B changed, e.g. trust increased\"}\n")
	b.WriteString("  }\n]\n\n")
	b.WriteString("Return an empty array if nothing significant happened.\n\n")

	names := characterNames(p)
	if len(names) > 0 {
		b.WriteString("Known characters: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n\n")
	}

	for _, desc := range p.CharacterDescriptions {
		if strings.TrimSpace(desc) == "" {
			continue
		}
		b.WriteString("Character description:\n")
		b.WriteString(desc)
		b.WriteString("\n\n")
	}

	if len(p.PriorMemories) > 0 {
		b.WriteString("Events already extracted (do not repeat these):\n")
		for _, memory := range p.PriorMemories {
			b.WriteString("- ")
			b.WriteString(memory)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Conversation:\n")
	b.WriteString(p.TurnText)

	return b.String()
}

// characterNames assembles the character list for the prompt. Scenario/GM
// cards omit the primary character: the narrator voice is not a character.
func characterNames(p Params) []string {
	var names []string

	if p.CharacterName != "" && p.Settings.CardType != session.CardTypeScenario {
		names = append(names, p.CharacterName)
	}
	if p.UserName != "" {
		names = append(names, p.UserName)
	}
	for _, name := range p.Settings.NameList {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		duplicate := false
		for _, existing := range names {
			if strings.EqualFold(existing, trimmed) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			names = append(names, trimmed)
		}
	}

	return names
}
