package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	return NewMemory(DefaultConfig(), zap.NewNop())
}

func TestRegister_AppendsAndTracks(t *testing.T) {
	m := newTestMemory(t)

	require.NoError(t, m.Register(types.NewUtterance(types.UserSpeakerID, "Bonjour à tous.", types.ResponseNormal)))
	require.NoError(t, m.Register(types.NewUtterance("sarah_johnson_journaliste", "Bienvenue sur le plateau.", types.ResponseNormal)))

	last, ok := m.LastUtterance("sarah_johnson_journaliste")
	require.True(t, ok)
	assert.Equal(t, "Bienvenue sur le plateau.", last)
	assert.Equal(t, 1, m.UserTurns())
	assert.Equal(t, map[string]int{"sarah_johnson_journaliste": 1}, m.Participation())
}

func TestRegister_RepetitionGuard(t *testing.T) {
	m := newTestMemory(t)

	require.NoError(t, m.Register(types.NewUtterance("marcus_thompson_expert",
		"La technologie actuelle permet déjà ces usages.", types.ResponseNormal)))

	err := m.Register(types.NewUtterance("marcus_thompson_expert",
		"La technologie actuelle permet déjà ces usages.", types.ResponseNormal))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvariantViolation, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))

	// a genuinely different answer passes
	require.NoError(t, m.Register(types.NewUtterance("marcus_thompson_expert",
		"Regardons plutôt les limites réglementaires de ces systèmes.", types.ResponseNormal)))
}

func TestRegister_UserNeverRejected(t *testing.T) {
	m := newTestMemory(t)

	require.NoError(t, m.Register(types.NewUtterance(types.UserSpeakerID, "Je répète ma question.", types.ResponseNormal)))
	require.NoError(t, m.Register(types.NewUtterance(types.UserSpeakerID, "Je répète ma question.", types.ResponseNormal)))
	assert.Equal(t, 2, m.UserTurns())
}

func TestHistoryBounded(t *testing.T) {
	m := NewMemory(Config{MaxHistory: 4, NoRepeatWindow: 1}, zap.NewNop())

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Register(types.NewUtterance(types.UserSpeakerID,
			fmt.Sprintf("message numéro %d", i), types.ResponseNormal)))
	}

	recent := m.Recent(0)
	require.Len(t, recent, 4)
	assert.Equal(t, "message numéro 9", recent[3].Text)
	assert.Equal(t, "message numéro 6", recent[0].Text)
}

func TestTurnCursor(t *testing.T) {
	m := newTestMemory(t)

	assert.Empty(t, m.TurnCursor())
	m.AdvanceTurn("michel_dubois_animateur")
	assert.Equal(t, "michel_dubois_animateur", m.TurnCursor())
}

func TestSpokeWithin(t *testing.T) {
	m := newTestMemory(t)
	base := time.Now()
	m.now = func() time.Time { return base }

	require.NoError(t, m.Register(types.NewUtterance("sarah_johnson_journaliste", "Un instant.", types.ResponseNormal)))

	m.now = func() time.Time { return base.Add(10 * time.Second) }
	assert.True(t, m.SpokeWithin("sarah_johnson_journaliste", 30*time.Second))

	m.now = func() time.Time { return base.Add(40 * time.Second) }
	assert.False(t, m.SpokeWithin("sarah_johnson_journaliste", 30*time.Second))
	assert.False(t, m.SpokeWithin("marcus_thompson_expert", 30*time.Second))
}

func TestShareOfRecent(t *testing.T) {
	m := newTestMemory(t)

	speakers := []string{
		"michel_dubois_animateur",
		"michel_dubois_animateur",
		"sarah_johnson_journaliste",
		"michel_dubois_animateur",
		"marcus_thompson_expert",
	}
	for i, id := range speakers {
		require.NoError(t, m.Register(types.NewUtterance(id, fmt.Sprintf("intervention %d", i), types.ResponseNormal)))
	}

	assert.InDelta(t, 0.6, m.ShareOfRecent("michel_dubois_animateur", 5), 1e-9)
	assert.InDelta(t, 0.2, m.ShareOfRecent("marcus_thompson_expert", 5), 1e-9)
}

func TestLastSpeakers(t *testing.T) {
	m := newTestMemory(t)

	require.NoError(t, m.Register(types.NewUtterance("michel_dubois_animateur", "Ouverture du débat.", types.ResponseNormal)))
	require.NoError(t, m.Register(types.NewUtterance(types.UserSpeakerID, "Ma position est claire.", types.ResponseNormal)))
	require.NoError(t, m.Register(types.NewUtterance("sarah_johnson_journaliste", "Une précision s'impose.", types.ResponseNormal)))

	assert.Equal(t, []string{"sarah_johnson_journaliste", "michel_dubois_animateur"}, m.LastSpeakers(2))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Oui absolument", "oui absolument"))
	assert.Greater(t, Similarity(
		"La technologie progresse très vite dans ce domaine",
		"La technologie progresse très vite dans ce secteur"), 0.85)
	assert.Less(t, Similarity(
		"La technologie progresse très vite",
		"Les conséquences sociales restent incertaines"), 0.3)
	assert.Equal(t, 0.0, Similarity("", "quelque chose"))
}
