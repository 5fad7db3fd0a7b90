package agent

import (
	"strings"

	"github.com/eloquence-ai/studio/types"
)

// emotionRule maps trigger keywords in the generated text to an emotion.
type emotionRule struct {
	keywords  []string
	emotion   types.Emotion
	intensity float64
}

// Role-keyed rule tables. The first matching rule wins; rules are ordered
// from most to least specific.
var emotionRules = map[types.Role][]emotionRule{
	types.RoleAnimator: {
		{[]string{"excellent", "parfait", "bravo"}, types.EmotionEnthusiasm, 0.8},
		{[]string{"attention", "recadr", "stop"}, types.EmotionAuthority, 0.7},
	},
	types.RoleJournalist: {
		{[]string{"pourquoi", "comment", "expliquez"}, types.EmotionSkepticism, 0.8},
		{[]string{"mais ", "cependant", "vraiment"}, types.EmotionSkepticism, 0.7},
	},
	types.RoleExpert: {
		{[]string{"complexe", "nuancé", "plusieurs"}, types.EmotionAuthority, 0.8},
		{[]string{"exemple", "concrètement", "pratique"}, types.EmotionBenevolence, 0.7},
	},
}

// Role defaults when no keyword matches.
var emotionDefaults = map[types.Role]types.EmotionProfile{
	types.RoleAnimator:   {Primary: types.EmotionBenevolence, Intensity: 0.6},
	types.RoleJournalist: {Primary: types.EmotionNeutral, Intensity: 0.6},
	types.RoleExpert:     {Primary: types.EmotionNeutral, Intensity: 0.6},
}

// DetectEmotion derives the voicing profile for a generated answer: keywords
// select the emotion, punctuation density nudges the intensity.
func DetectEmotion(role types.Role, text string) types.EmotionProfile {
	lower := strings.ToLower(text)

	profile, ok := emotionDefaults[role]
	if !ok {
		profile = types.NeutralProfile()
	}
	for _, rule := range emotionRules[role] {
		if containsAny(lower, rule.keywords) {
			profile = types.EmotionProfile{Primary: rule.emotion, Intensity: rule.intensity}
			break
		}
	}

	profile.Intensity += 0.05 * float64(strings.Count(text, "!")+strings.Count(text, "?"))
	if profile.Intensity > 1 {
		profile.Intensity = 1
	}
	return profile
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
