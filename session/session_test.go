package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/scenario"
	"github.com/eloquence-ai/studio/types"
)

type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *scriptedGenerator) Generate(context.Context, []generator.Message, float64, int) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return "Très bien, poursuivons ce débat ensemble, qu'en pensez-vous ?", nil
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(_ context.Context, _, personaID string, _ types.EmotionProfile) ([]byte, error) {
	return []byte("pcm:" + personaID), nil
}

type chanTranscriber struct{ ch chan Transcript }

func (c *chanTranscriber) Transcripts() <-chan Transcript { return c.ch }

func newDeps(plane media.Plane, tr Transcriber) Deps {
	store := kv.NewMemory()
	return Deps{
		Store:       store,
		TTS:         fakeTTS{},
		Generator:   &scriptedGenerator{},
		Plane:       plane,
		Transcriber: tr,
		Scenarios:   scenario.NewGenerator(store, zap.NewNop()),
	}
}

func TestResolveExerciseAliases(t *testing.T) {
	cases := map[string]string{
		"studio_debate_tv":          ExerciseDebateTV,
		"studio_situations_pro":     ExerciseDebateTV,
		"studio_debatPlateau":       ExerciseDebateTV,
		"studio_entretienEmbauche":  ExerciseJobInterview,
		"studio_reunionDirection":   ExerciseBoardroom,
		"studio_conferenceVente":    ExerciseSalesConference,
		"studio_conferencePublique": ExerciseKeynote,
	}
	for alias, want := range cases {
		tmpl, ok := ResolveExercise(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, want, tmpl.ID, alias)
	}

	tmpl, ok := ResolveExercise("improv_night")
	assert.False(t, ok)
	assert.Equal(t, ExerciseDebateTV, tmpl.ID)
}

func TestNewSessionRoutesSingleAgent(t *testing.T) {
	plane := media.NewMemoryPlane(media.RoomMetadata{
		ExerciseType: "studio_entretienEmbauche",
		UserName:     "Bob",
		UserSubject:  "le poste de chef de projet",
	})
	defer plane.Close()

	s, err := New(context.Background(), DefaultConfig(), newDeps(plane, &chanTranscriber{ch: make(chan Transcript)}), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ExerciseJobInterview, s.Exercise.ID)
	assert.False(t, s.Exercise.MultiAgent)
	assert.Nil(t, s.queue)
	assert.Equal(t, "job_interview", s.Plan.ScenarioID)
}

func TestNewSessionBuildsDebatePanel(t *testing.T) {
	plane := media.NewMemoryPlane(media.RoomMetadata{ExerciseType: "studio_debate_tv", UserName: "Alice"})
	defer plane.Close()

	s, err := New(context.Background(), DefaultConfig(), newDeps(plane, &chanTranscriber{ch: make(chan Transcript)}), zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Exercise.MultiAgent)
	require.NotNil(t, s.queue)
	assert.Len(t, s.Exercise.PersonaIDs, 3)
	assert.Equal(t, "debate_ai", s.Plan.ScenarioID)
}

func TestRunDeliversIntroductionAndAnswers(t *testing.T) {
	plane := media.NewMemoryPlane(media.RoomMetadata{
		ExerciseType: "studio_debate_tv",
		UserName:     "Alice",
		UserSubject:  "l'intelligence artificielle",
	})
	defer plane.Close()

	tr := &chanTranscriber{ch: make(chan Transcript, 4)}
	cfg := DefaultConfig()
	cfg.Agent.MaxReactions = 0
	cfg.SilenceTimeout = time.Minute

	s, err := New(context.Background(), cfg, newDeps(plane, tr), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// introduction frame first
	require.Eventually(t, func() bool { return len(plane.Frames()) >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "michel_dubois_animateur", plane.Frames()[0].SpeakerID)

	tr.ch <- Transcript{SpeakerID: types.UserSpeakerID, Text: "Sarah, votre regard de journaliste sur ce sujet ?"}

	require.Eventually(t, func() bool { return len(plane.Frames()) >= 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "sarah_johnson_journaliste", plane.Frames()[1].SpeakerID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down")
	}
}

func TestLongSilenceTriggersRelaunch(t *testing.T) {
	plane := media.NewMemoryPlane(media.RoomMetadata{ExerciseType: "studio_keynote", UserName: "Alice"})
	defer plane.Close()

	cfg := DefaultConfig()
	cfg.SilenceTimeout = 50 * time.Millisecond

	s, err := New(context.Background(), cfg, newDeps(plane, &chanTranscriber{ch: make(chan Transcript)}), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// introduction plus at least one silence relaunch by the animator
	require.Eventually(t, func() bool { return len(plane.Frames()) >= 2 }, 3*time.Second, 10*time.Millisecond)
	for _, frame := range plane.Frames() {
		assert.Equal(t, "michel_dubois_animateur", frame.SpeakerID)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down")
	}
}
