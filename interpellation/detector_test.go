package interpellation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
	"github.com/eloquence-ai/studio/voice"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	return NewDetector(voice.DefaultPersonas(), zap.NewNop())
}

func TestDetect_DirectAddress(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Sarah, que pensez-vous de l'impact de l'IA sur le journalisme ?", types.UserSpeakerID, nil)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "sarah_johnson_journaliste", ev.PersonaID)
	assert.Equal(t, types.InterpellationDirect, ev.Type)
	assert.Equal(t, types.PriorityHigh, ev.Priority)
	assert.Equal(t, ConfidenceDirect, ev.Confidence)
	assert.Equal(t, "Sarah", ev.TriggerPhrase)
}

func TestDetect_MultipleAddressLeftToRight(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Sarah, vos investigations ? Et Marcus, votre expertise technique ?", types.UserSpeakerID, nil)
	require.Len(t, events, 2)

	assert.Equal(t, "sarah_johnson_journaliste", events[0].PersonaID)
	assert.Equal(t, "marcus_thompson_expert", events[1].PersonaID)
	for _, ev := range events {
		assert.Equal(t, types.InterpellationMultiple, ev.Type)
		assert.Equal(t, types.PriorityHigh, ev.Priority)
	}
	assert.Less(t, events[0].Position, events[1].Position)
}

func TestDetect_FormalAddress(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Monsieur Dubois, pouvez-vous recadrer le débat ?", types.UserSpeakerID, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "michel_dubois_animateur", events[0].PersonaID)
	assert.Equal(t, types.InterpellationDirect, events[0].Type)
}

func TestDetect_RoleLabelAtSentenceStart(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Journaliste, avez-vous vérifié ces chiffres ?", types.UserSpeakerID, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "sarah_johnson_journaliste", events[0].PersonaID)
}

func TestDetect_IndirectAlias(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("J'aimerais entendre notre expert sur ce point.", types.UserSpeakerID, nil)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "marcus_thompson_expert", ev.PersonaID)
	assert.Equal(t, types.InterpellationIndirect, ev.Type)
	assert.Equal(t, types.PriorityMedium, ev.Priority)
	assert.Equal(t, ConfidenceIndirect, ev.Confidence)
}

func TestDetect_DirectLayerWinsOverIndirect(t *testing.T) {
	d := newTestDetector(t)

	// Marcus is addressed directly; the alias mention of the journalist is
	// overridden by the winning direct layer.
	events := d.Detect("Marcus, répondez à notre journaliste.", types.UserSpeakerID, nil)
	require.Len(t, events, 1)
	assert.Equal(t, "marcus_thompson_expert", events[0].PersonaID)
	assert.Equal(t, types.InterpellationDirect, events[0].Type)
}

func TestDetect_SelfAddressDropped(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Sarah, je vais y revenir.", "sarah_johnson_journaliste", nil)
	assert.Empty(t, events)
}

func TestDetect_EmptyAndPlainMessages(t *testing.T) {
	d := newTestDetector(t)

	assert.Empty(t, d.Detect("", types.UserSpeakerID, nil))
	assert.Empty(t, d.Detect("   ", types.UserSpeakerID, nil))
	assert.Empty(t, d.Detect("Je pense que la technologie progresse vite.", types.UserSpeakerID, nil))
}

func TestDetect_AnimatorRoleTargetedImperative(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Donnez-nous votre point de vue, expert.", "michel_dubois_animateur", nil)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "marcus_thompson_expert", ev.PersonaID)
	assert.Equal(t, types.InterpellationDirective, ev.Type)
	assert.Equal(t, types.PriorityMedium, ev.Priority)
	assert.Equal(t, ConfidenceDirective, ev.Confidence)
	assert.Equal(t, "expert", ev.TriggerPhrase)
}

func TestDetect_AnimatorAssignsByRoleMidSentence(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Alors journaliste, poursuivez sur ce terrain.", "michel_dubois_animateur", nil)
	require.Len(t, events, 1)
	assert.Equal(t, "sarah_johnson_journaliste", events[0].PersonaID)
	assert.Equal(t, types.InterpellationDirective, events[0].Type)
}

func TestDetect_RoleImperativeFromUserIsNotDirective(t *testing.T) {
	d := newTestDetector(t)

	// Floor assignments are animator authority; the same words from the
	// participant do not hand the floor.
	events := d.Detect("Donnez-nous votre point de vue, expert.", types.UserSpeakerID, nil)
	assert.Empty(t, events)
}

func TestDetect_AnimatorModerationElectsLeastActive(t *testing.T) {
	d := newTestDetector(t)

	participation := map[string]int{
		"sarah_johnson_journaliste": 1,
		"marcus_thompson_expert":    4,
	}
	events := d.Detect("Faisons le point avant d'aller plus loin.", "michel_dubois_animateur", participation)
	require.Len(t, events, 1)
	assert.Equal(t, "sarah_johnson_journaliste", events[0].PersonaID)
	assert.Equal(t, types.InterpellationDirective, events[0].Type)
	assert.Equal(t, types.PriorityMedium, events[0].Priority)
}

func TestDetect_AnimatorGeneralQuestionElectsLeastActive(t *testing.T) {
	d := newTestDetector(t)

	participation := map[string]int{
		"sarah_johnson_journaliste": 5,
		"marcus_thompson_expert":    1,
	}
	events := d.Detect("Qu'en pensez-vous ?", "michel_dubois_animateur", participation)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "marcus_thompson_expert", ev.PersonaID)
	assert.Equal(t, types.InterpellationDirective, ev.Type)
	assert.Equal(t, types.PriorityMedium, ev.Priority)
}

func TestDetect_GeneralQuestionFromUserIsNotDirective(t *testing.T) {
	d := newTestDetector(t)

	events := d.Detect("Qu'en pensez-vous ?", types.UserSpeakerID, nil)
	assert.Empty(t, events)
}

func TestDetect_Deterministic(t *testing.T) {
	d := newTestDetector(t)

	msg := "Sarah, votre enquête ? Et Marcus, votre analyse ?"
	first := d.Detect(msg, types.UserSpeakerID, nil)
	second := d.Detect(msg, types.UserSpeakerID, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PersonaID, second[i].PersonaID)
		assert.Equal(t, first[i].TriggerPhrase, second[i].TriggerPhrase)
		assert.Equal(t, first[i].Position, second[i].Position)
	}
}
