package llm

import (
	"regexp"
	"strings"
)

// reasoningRegex matches inline reasoning segments some models prepend to
// their answer. The JSON payload follows the closing tag.
var reasoningRegex = regexp.MustCompile(`(?s)<(think|thinking|reasoning)>.*?</(think|thinking|reasoning)>`)

// StripReasoning removes embedded reasoning segments from model output so
// the parser only sees the answer content.
func StripReasoning(content string) string {
	return strings.TrimSpace(reasoningRegex.ReplaceAllString(content, ""))
}
