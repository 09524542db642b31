package extract

import "fmt"

// ConfigurationError indicates no usable LLM caller was configured. Fatal to
// the current operation; no state is mutated.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Reason == "" {
		return "no extraction model configured"
	}
	return "no extraction model configured: " + e.Reason
}

// ExtractionError indicates an extraction cycle failed. It carries the turn
// ids the cycle attempted so callers can report or retry the batch. No
// partial state is committed for a failed cycle.
type ExtractionError struct {
	TurnIDs []int
	Err     error
}

func (e ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %d turns: %v", len(e.TurnIDs), e.Err)
}

func (e ExtractionError) Unwrap() error {
	return e.Err
}
