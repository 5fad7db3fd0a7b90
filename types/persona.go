package types

// Role identifies the debate function a persona plays in the ring.
type Role string

const (
	RoleAnimator   Role = "animator"
	RoleJournalist Role = "journalist"
	RoleExpert     Role = "expert"
)

// UserSpeakerID is the reserved speaker id for the human participant.
const UserSpeakerID = "user"

// VoiceParams carries the synthesis parameters sent to the TTS provider.
// All float fields are expected to stay within [0,1]; Clamp enforces it.
type VoiceParams struct {
	Stability    float64 `json:"stability" yaml:"stability"`
	Similarity   float64 `json:"similarity" yaml:"similarity"`
	Style        float64 `json:"style" yaml:"style"`
	SpeakerBoost bool    `json:"speaker_boost" yaml:"speaker_boost"`
}

// Clamp returns a copy with every float parameter forced into [0,1].
func (v VoiceParams) Clamp() VoiceParams {
	v.Stability = clamp01(v.Stability)
	v.Similarity = clamp01(v.Similarity)
	v.Style = clamp01(v.Style)
	return v
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Persona describes one AI debate participant. Immutable for the lifetime
// of a session.
type Persona struct {
	ID             string      `json:"id" yaml:"id"`
	DisplayName    string      `json:"display_name" yaml:"display_name"`
	Role           Role        `json:"role" yaml:"role"`
	VoiceID        string      `json:"voice_id" yaml:"voice_id"`
	BaseVoice      VoiceParams `json:"base_voice" yaml:"base_voice"`
	SystemTemplate string      `json:"system_template,omitempty" yaml:"system_template,omitempty"`
	// Aliases are indirect-address forms ("notre journaliste", "l'expert")
	// matched case-insensitively by the interpellation detector.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	// Preambles are accepted acknowledgement openers for interpellation
	// replies ("Oui", "Effectivement", ...).
	Preambles []string `json:"preambles,omitempty" yaml:"preambles,omitempty"`
}

// LastName returns the last space-separated token of the display name,
// used for "Monsieur Dubois" style address detection.
func (p Persona) LastName() string {
	name := p.DisplayName
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			return name[i+1:]
		}
	}
	return name
}
