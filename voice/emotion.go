package voice

import "github.com/eloquence-ai/studio/types"

// emotionDelta is the additive adjustment an emotion applies to the base
// voice parameters before clamping.
type emotionDelta struct {
	stability float64
	style     float64
}

// emotionTable is fixed at registry level: the deltas reproduce the
// provider settings observed in production, expressed relative to the
// neutral midpoint.
var emotionTable = map[types.Emotion]emotionDelta{
	types.EmotionNeutral:     {0, 0},
	types.EmotionEnthusiasm:  {-0.20, 0.20},
	types.EmotionAuthority:   {0.20, 0.00},
	types.EmotionBenevolence: {0.10, -0.10},
	types.EmotionSkepticism:  {-0.15, 0.25},
	types.EmotionPassion:     {-0.30, 0.30},
	types.EmotionEmpathy:     {0.10, -0.10},
}

// ApplyEmotion adds the emotion's parameter deltas to base, scales for
// intensity extremes, and clamps every field into [0,1].
func ApplyEmotion(base types.VoiceParams, profile types.EmotionProfile) types.VoiceParams {
	profile = profile.Normalize()

	delta, ok := emotionTable[profile.Primary]
	if !ok {
		delta = emotionTable[types.EmotionNeutral]
	}

	out := base
	out.Stability += delta.stability
	out.Style += delta.style

	// High intensity loosens the voice, low intensity steadies it.
	switch {
	case profile.Intensity > 0.8:
		out.Stability -= 0.1
		out.Style += 0.1
	case profile.Intensity < 0.4:
		out.Stability += 0.2
		out.Style -= 0.1
	}

	return out.Clamp()
}
