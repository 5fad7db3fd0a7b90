package types

import "time"

// SkillLevel grades the participant's current ability.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// CoachingStyle tunes how hard the personas push the participant.
type CoachingStyle string

const (
	StyleChallenging CoachingStyle = "challenging"
	StyleBalanced    CoachingStyle = "balanced"
	StyleSupportive  CoachingStyle = "supportive"
)

// UserProfile describes the participant a scenario is tailored to.
type UserProfile struct {
	UserID    string        `json:"user_id"`
	Name      string        `json:"name,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	Skill     SkillLevel    `json:"skill"`
	Style     CoachingStyle `json:"style"`
	Interests []string      `json:"interests,omitempty"`
}

// Performance is the live score snapshot used to adapt a running session.
type Performance struct {
	OverallScore   float64 `json:"overall_score"`
	SilenceSeconds float64 `json:"silence_seconds"`
}

// DynamicEvent is a scripted mid-session perturbation.
type DynamicEvent struct {
	Type    string `json:"type"`
	WhenMin int    `json:"when_min"`
	Impact  string `json:"impact"`
}

// AdaptationTrigger pairs a live condition with the action to take.
type AdaptationTrigger struct {
	Trigger   string          `json:"trigger"`
	Condition string          `json:"condition"`
	Action    map[string]bool `json:"action"`
}

// ScenarioPlan is the fully resolved plan for one coaching session.
type ScenarioPlan struct {
	ID                  string              `json:"id"`
	ScenarioID          string              `json:"scenario_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	DurationMinutes     int                 `json:"duration_minutes"`
	AgentIDs            []string            `json:"agent_ids"`
	DynamicEvents       []DynamicEvent      `json:"dynamic_events"`
	AdaptationTriggers  []AdaptationTrigger `json:"adaptation_triggers"`
	EstimatedDifficulty float64             `json:"estimated_difficulty"`
	UniquenessScore     float64             `json:"uniqueness_score"`
	CreatedAt           time.Time           `json:"created_at"`
}
