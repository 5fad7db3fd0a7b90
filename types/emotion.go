package types

// Emotion is one of the fixed emotional registers a persona can speak in.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionEnthusiasm  Emotion = "enthusiasm"
	EmotionAuthority   Emotion = "authority"
	EmotionBenevolence Emotion = "benevolence"
	EmotionSkepticism  Emotion = "skepticism"
	EmotionPassion     Emotion = "passion"
	EmotionEmpathy     Emotion = "empathy"
)

// EmotionProfile pairs an emotion with its intensity in [0,1].
type EmotionProfile struct {
	Primary   Emotion `json:"primary" yaml:"primary"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
}

// NeutralProfile is the default profile when no emotion was inferred.
func NeutralProfile() EmotionProfile {
	return EmotionProfile{Primary: EmotionNeutral, Intensity: 0.5}
}

// Normalize clamps the intensity into [0,1] and substitutes neutral for an
// empty emotion.
func (p EmotionProfile) Normalize() EmotionProfile {
	if p.Primary == "" {
		p.Primary = EmotionNeutral
	}
	p.Intensity = clamp01(p.Intensity)
	return p
}
