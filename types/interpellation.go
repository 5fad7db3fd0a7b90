package types

import "time"

// InterpellationType classifies how a persona was addressed.
type InterpellationType string

const (
	InterpellationDirect    InterpellationType = "direct"
	InterpellationIndirect  InterpellationType = "indirect"
	InterpellationMultiple  InterpellationType = "multiple"
	InterpellationDirective InterpellationType = "authority_directive"
	InterpellationNone      InterpellationType = "none"
)

// Priority orders interpellation events in the response queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String implements fmt.Stringer.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// InterpellationEvent records that one persona was addressed in a message.
// A message addressing several personas yields one event per persona, in
// left-to-right order of appearance.
type InterpellationEvent struct {
	Timestamp     time.Time          `json:"timestamp"`
	SourceSpeaker string             `json:"source_speaker"`
	Message       string             `json:"message"`
	PersonaID     string             `json:"persona_id"`
	Type          InterpellationType `json:"type"`
	Priority      Priority           `json:"priority"`
	Confidence    float64            `json:"confidence"`
	TriggerPhrase string             `json:"trigger_phrase"`
	// Position is the byte offset of the trigger phrase in the message,
	// used for left-to-right ordering and tie-breaks.
	Position int `json:"position"`
}
