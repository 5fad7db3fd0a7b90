package types

// TurnMode selects how the floor is assigned between personas.
type TurnMode string

const (
	// TurnModerated lets the animator re-anchor the debate periodically.
	TurnModerated TurnMode = "moderated"
	// TurnRoundRobin rotates strictly over the ring.
	TurnRoundRobin TurnMode = "round_robin"
	// TurnSingle routes the whole session to a single persona.
	TurnSingle TurnMode = "single"
)

// InteractionRules bounds how personas behave within an exercise.
type InteractionRules struct {
	MaxSpeakingSeconds   int  `json:"max_speaking_seconds" yaml:"max_speaking_seconds"`
	MinPauseMillis       int  `json:"min_pause_millis" yaml:"min_pause_millis"`
	InterruptionsAllowed bool `json:"interruptions_allowed" yaml:"interruptions_allowed"`
}

// ExerciseTemplate describes one studio exercise: which personas take part
// and under which interaction rules.
type ExerciseTemplate struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	PersonaIDs []string         `json:"persona_ids" yaml:"persona_ids"`
	Rules      InteractionRules `json:"rules" yaml:"rules"`
	TurnMode   TurnMode         `json:"turn_mode" yaml:"turn_mode"`
	MultiAgent bool             `json:"multi_agent" yaml:"multi_agent"`
}
