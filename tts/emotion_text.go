package tts

import (
	"strings"

	"github.com/eloquence-ai/studio/types"
)

// AdjustPunctuation nudges terminal punctuation toward the target emotion
// so the provider renders the right prosody. It only touches the ending of
// the text and never injects markup.
func AdjustPunctuation(text string, profile types.EmotionProfile) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	profile = profile.Normalize()
	if profile.Intensity < 0.6 {
		return text
	}

	switch profile.Primary {
	case types.EmotionEnthusiasm, types.EmotionPassion:
		if strings.HasSuffix(text, ".") {
			return strings.TrimSuffix(text, ".") + " !"
		}
	case types.EmotionSkepticism:
		if strings.HasSuffix(text, ".") {
			return strings.TrimSuffix(text, ".") + " ?"
		}
	case types.EmotionBenevolence, types.EmotionEmpathy:
		if strings.HasSuffix(text, "!") {
			return strings.TrimSuffix(text, "!") + "."
		}
	}
	return text
}
