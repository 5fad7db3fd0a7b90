package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eloquence-ai/studio/types"
)

func TestDetectEmotionAnimator(t *testing.T) {
	p := DetectEmotion(types.RoleAnimator, "Bravo, excellent argument.")
	assert.Equal(t, types.EmotionEnthusiasm, p.Primary)
	assert.InDelta(t, 0.8, p.Intensity, 1e-9)

	p = DetectEmotion(types.RoleAnimator, "Attention, je dois recadrer le débat.")
	assert.Equal(t, types.EmotionAuthority, p.Primary)

	p = DetectEmotion(types.RoleAnimator, "Poursuivons notre discussion.")
	assert.Equal(t, types.EmotionBenevolence, p.Primary)
	assert.InDelta(t, 0.6, p.Intensity, 1e-9)
}

func TestDetectEmotionJournalist(t *testing.T) {
	p := DetectEmotion(types.RoleJournalist, "Pourquoi avoir pris cette décision ?")
	assert.Equal(t, types.EmotionSkepticism, p.Primary)

	p = DetectEmotion(types.RoleJournalist, "Une remarque intéressante.")
	assert.Equal(t, types.EmotionNeutral, p.Primary)
}

func TestDetectEmotionExpert(t *testing.T) {
	p := DetectEmotion(types.RoleExpert, "Le problème est complexe et mérite plusieurs angles.")
	assert.Equal(t, types.EmotionAuthority, p.Primary)

	p = DetectEmotion(types.RoleExpert, "Prenons un exemple très concret.")
	assert.Equal(t, types.EmotionBenevolence, p.Primary)
}

func TestPunctuationDensityRaisesIntensity(t *testing.T) {
	calm := DetectEmotion(types.RoleAnimator, "Bravo pour cette intervention.")
	excited := DetectEmotion(types.RoleAnimator, "Bravo ! Quelle intervention ! Incroyable !")
	assert.Greater(t, excited.Intensity, calm.Intensity)

	saturated := DetectEmotion(types.RoleAnimator, "Bravo !!!!!!!!!!")
	assert.LessOrEqual(t, saturated.Intensity, 1.0)
}
