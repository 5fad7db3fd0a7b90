package agent

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/conversation"
	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/interpellation"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/intro"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/respond"
	"github.com/eloquence-ai/studio/sanitize"
	"github.com/eloquence-ai/studio/turn"
	"github.com/eloquence-ai/studio/types"
	"github.com/eloquence-ai/studio/voice"
)

type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	failures  int // fail this many calls before succeeding
	calls     int
	prompts   [][]generator.Message
}

func (g *stubGenerator) Generate(_ context.Context, messages []generator.Message, _ float64, _ int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, messages)
	if g.failures > 0 {
		g.failures--
		return "", types.NewError(types.ErrGenTimeout, "generator timed out")
	}
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "Très bien, continuons ce débat ensemble, qu'en dites-vous ?", nil
	}
	out := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return out, nil
}

type stubTTS struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *stubTTS) Synthesize(_ context.Context, text, personaID string, profile types.EmotionProfile) ([]byte, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte("pcm:" + personaID), nil
}

type fixture struct {
	manager *Manager
	plane   *media.MemoryPlane
	gen     *stubGenerator
	tts     *stubTTS
	queue   *respond.System
	cancel  context.CancelFunc
}

func newFixture(t *testing.T, cfg Config, gen *stubGenerator) *fixture {
	t.Helper()
	logger := zap.NewNop()
	personas := voice.DefaultPersonas()
	registry := voice.NewRegistry(personas, logger)
	plane := media.NewMemoryPlane(media.RoomMetadata{ExerciseType: "studio_debate"})
	synth := &stubTTS{}

	m := NewManager(cfg, Deps{
		Registry:  registry,
		Sanitizer: sanitize.New(personas, logger),
		TTS:       synth,
		Intros:    intro.NewCache(kv.NewMemory(), logger),
		Detector:  interpellation.NewDetector(personas, logger),
		Memory:    conversation.NewMemory(conversation.DefaultConfig(), logger),
		Turns:     turn.NewController(personas, turn.DefaultConfig(), logger),
		Generator: gen,
		Plane:     plane,
	}, UserContext{Name: "Alice", Subject: "l'intelligence artificielle"}, logger)

	queue := respond.NewSystem(respond.DefaultConfig(), m, logger)
	m.SetQueue(queue)
	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)

	f := &fixture{manager: m, plane: plane, gen: gen, tts: synth, queue: queue, cancel: cancel}
	t.Cleanup(func() {
		m.Wait()
		queue.Close()
		cancel()
		plane.Close()
	})
	return f
}

func noReactions() Config {
	cfg := DefaultConfig()
	cfg.MaxReactions = 0
	return cfg
}

func TestAddressedPersonaAnswersWithPreamble(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Oui, l'impact est majeur pour notre métier de terrain."}}
	f := newFixture(t, noReactions(), gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Sarah, que pensez-vous de l'impact de l'IA sur le journalisme ?")
	require.NoError(t, err)
	require.Len(t, utts, 1)

	utt := utts[0]
	assert.Equal(t, "sarah_johnson_journaliste", utt.SpeakerID)
	assert.Equal(t, types.ResponseInterpellation, utt.ResponseType)

	starters := []string{"Oui", "Effectivement", "Absolument", "Excellente question"}
	found := false
	for _, s := range starters {
		if strings.HasPrefix(utt.Text, s) {
			found = true
			break
		}
	}
	assert.True(t, found, "response %q must open with an acknowledgement formula", utt.Text)

	frames := f.plane.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "sarah_johnson_journaliste", frames[0].SpeakerID)
}

func TestMultipleAddresseesAnswerInOrder(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Oui, mes investigations montrent une vraie transformation du métier.",
		"Absolument, sur le plan technique les modèles progressent très vite.",
	}}
	f := newFixture(t, noReactions(), gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Sarah, vos investigations ? Et Marcus, votre expertise technique ?")
	require.NoError(t, err)
	require.Len(t, utts, 2)
	assert.Equal(t, "sarah_johnson_journaliste", utts[0].SpeakerID)
	assert.Equal(t, "marcus_thompson_expert", utts[1].SpeakerID)
	assert.Equal(t, types.ResponseInterpellation, utts[0].ResponseType)
	assert.Equal(t, types.ResponseInterpellation, utts[1].ResponseType)

	speakers := f.plane.Speakers()
	require.Len(t, speakers, 2)
	assert.Equal(t, []string{"sarah_johnson_journaliste", "marcus_thompson_expert"}, speakers)
}

func TestRotationWhenNoAddressee(t *testing.T) {
	gen := &stubGenerator{}
	f := newFixture(t, noReactions(), gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Je pense que ce sujet nous concerne tous.")
	require.NoError(t, err)
	require.Len(t, utts, 1)
	assert.Equal(t, types.ResponseNormal, utts[0].ResponseType)
	assert.NotEqual(t, types.UserSpeakerID, utts[0].SpeakerID)
	assert.Len(t, f.plane.Frames(), 1)
}

func TestEmptyMessageProducesNothing(t *testing.T) {
	f := newFixture(t, noReactions(), &stubGenerator{})

	utts, err := f.manager.ProcessUserMessage(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, utts)
	assert.Empty(t, f.plane.Frames())
}

func TestGeneratorExhaustionUsesScriptedFallback(t *testing.T) {
	gen := &stubGenerator{err: types.NewError(types.ErrGenEmpty, "no choices")}
	f := newFixture(t, noReactions(), gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Continuons sur ce thème.")
	require.NoError(t, err)
	require.Len(t, utts, 1)
	assert.Equal(t, types.ResponseFallback, utts[0].ResponseType)
	assert.NotEmpty(t, utts[0].Text)
	// tried once plus one shortened-prompt retry
	assert.Equal(t, 2, gen.calls)
}

func TestStageDirectionsNeverVoiced(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Marcus Thompson: *d'un ton posé* Oui, absolument, c'est une question essentielle.",
	}}
	f := newFixture(t, noReactions(), gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Marcus, votre avis d'expert ?")
	require.NoError(t, err)
	require.Len(t, utts, 1)
	assert.Equal(t, "Oui, absolument, c'est une question essentielle.", utts[0].Text)

	f.tts.mu.Lock()
	defer f.tts.mu.Unlock()
	require.Len(t, f.tts.texts, 1)
	assert.NotContains(t, f.tts.texts[0], "*")
	assert.NotContains(t, f.tts.texts[0], "Marcus Thompson:")
}

func TestSynthesisFailureStillAdvancesTurn(t *testing.T) {
	gen := &stubGenerator{}
	f := newFixture(t, noReactions(), gen)
	f.tts.err = types.NewError(types.ErrTTSFailAll, "both providers down")

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Un point de vue sur la question ?")
	require.NoError(t, err)
	require.Len(t, utts, 1)

	// a silence frame was still published for the speaker
	frames := f.plane.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, utts[0].SpeakerID, frames[0].SpeakerID)
	assert.NotEmpty(t, frames[0].PCM)
}

func TestReactionsAreShortAndBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReactionMinDelay = time.Millisecond
	cfg.ReactionMaxDelay = 2 * time.Millisecond
	gen := &stubGenerator{}
	f := newFixture(t, cfg, gen)

	utts, err := f.manager.ProcessUserMessage(context.Background(),
		"Je trouve ce débat passionnant.")
	require.NoError(t, err)
	require.Len(t, utts, 1)

	f.manager.Wait()
	frames := f.plane.Frames()
	assert.GreaterOrEqual(t, len(frames), 1)
	assert.LessOrEqual(t, len(frames), 1+cfg.MaxReactions)
}

func TestAnimatorFloorAssignmentTriggersPanelistAnswer(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Le débat est lancé ! Donnez-nous votre point de vue, expert ?",
		"Absolument, le plan technique mérite qu'on s'y attarde un instant.",
	}}
	f := newFixture(t, noReactions(), gen)

	utt, err := f.manager.Relaunch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "michel_dubois_animateur", utt.SpeakerID)

	// The animator handed the floor to the expert; the queue must deliver
	// the expert's answer without another user turn.
	require.Eventually(t, func() bool {
		return len(f.plane.Frames()) >= 2
	}, 3*time.Second, 10*time.Millisecond, "assigned panelist must answer")

	speakers := f.plane.Speakers()
	assert.Equal(t, "michel_dubois_animateur", speakers[0])
	assert.Equal(t, "marcus_thompson_expert", speakers[1])
}

func TestIntroductionIsCached(t *testing.T) {
	gen := &stubGenerator{responses: []string{
		"Bonsoir et bienvenue ! Ce soir nous parlons d'intelligence artificielle avec nos invités. Le débat commence.",
	}}
	f := newFixture(t, noReactions(), gen)
	ctx := context.Background()

	text1, pcm1, err := f.manager.GenerateIntroduction(ctx, "studio_debate")
	require.NoError(t, err)
	require.NotEmpty(t, text1)
	require.NotEmpty(t, pcm1)
	callsAfterFirst := gen.calls

	text2, pcm2, err := f.manager.GenerateIntroduction(ctx, "studio_debate")
	require.NoError(t, err)
	assert.Equal(t, text1, text2)
	assert.Equal(t, pcm1, pcm2)
	assert.Equal(t, callsAfterFirst, gen.calls, "second introduction must be served from cache")
}

func TestEnforcePreamble(t *testing.T) {
	preambles := []string{"Oui", "Effectivement"}

	assert.Equal(t, "Oui, bien sûr.", enforcePreamble("Oui, bien sûr.", preambles))
	assert.Equal(t, "Effectivement, c'est vrai.", enforcePreamble("Effectivement, c'est vrai.", preambles))
	assert.Equal(t, "Oui, c'est un vrai sujet.", enforcePreamble("C'est un vrai sujet.", preambles))
}

func TestKeepAnimatorEngaged(t *testing.T) {
	withQuestion := "Très bien. Et vous Sarah, votre regard ?"
	assert.Equal(t, withQuestion, keepAnimatorEngaged(withQuestion))

	flat := keepAnimatorEngaged("Très bien, merci pour cet échange.")
	assert.Contains(t, flat, "?")
}

func TestContainsEnglish(t *testing.T) {
	assert.True(t, containsEnglish("I think that the answer is about the model and you know it"))
	assert.False(t, containsEnglish("Je pense que la réponse est dans le modèle."))
}
