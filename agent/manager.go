// Package agent hosts the multi-agent manager: it turns a user utterance
// into persona answers by combining detection, turn rotation, prompt
// composition, generation, sanitizing and synthesis.
package agent

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eloquence-ai/studio/conversation"
	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/interpellation"
	"github.com/eloquence-ai/studio/intro"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/respond"
	"github.com/eloquence-ai/studio/sanitize"
	"github.com/eloquence-ai/studio/scenario"
	"github.com/eloquence-ai/studio/tts"
	"github.com/eloquence-ai/studio/turn"
	"github.com/eloquence-ai/studio/types"
	"github.com/eloquence-ai/studio/voice"
)

// Synthesizer is the audio pipeline contract the manager depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, personaID string, profile types.EmotionProfile) ([]byte, error)
}

// Observer receives generation and detection telemetry.
type Observer interface {
	ObserveGeneration(elapsed time.Duration, success bool)
	ObserveDetection(elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveGeneration(time.Duration, bool) {}
func (nopObserver) ObserveDetection(time.Duration)        {}

// Config tunes generation and reaction behavior.
type Config struct {
	MaxTokens         int           `yaml:"max_tokens" json:"max_tokens"`
	ReactionMaxTokens int           `yaml:"reaction_max_tokens" json:"reaction_max_tokens"`
	MaxReactions      int           `yaml:"max_reactions" json:"max_reactions"`
	ReactionMinDelay  time.Duration `yaml:"reaction_min_delay" json:"reaction_min_delay"`
	ReactionMaxDelay  time.Duration `yaml:"reaction_max_delay" json:"reaction_max_delay"`
}

// DefaultConfig returns the manager defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         200,
		ReactionMaxTokens: 40,
		MaxReactions:      2,
		ReactionMinDelay:  150 * time.Millisecond,
		ReactionMaxDelay:  600 * time.Millisecond,
	}
}

// Deps are the session-scoped collaborators the manager composes.
type Deps struct {
	Registry  *voice.Registry
	Sanitizer *sanitize.Sanitizer
	TTS       Synthesizer
	Intros    *intro.Cache
	Detector  *interpellation.Detector
	Memory    *conversation.Memory
	Turns     *turn.Controller
	Generator generator.TextGenerator
	Plane     media.Plane
	Observer  Observer
}

// Manager orchestrates the persona ensemble for one session.
type Manager struct {
	cfg       Config
	registry  *voice.Registry
	sanitizer *sanitize.Sanitizer
	tts       Synthesizer
	intros    *intro.Cache
	detector  *interpellation.Detector
	memory    *conversation.Memory
	turns     *turn.Controller
	gen       generator.TextGenerator
	plane     media.Plane
	observer  Observer
	logger    *zap.Logger

	user    UserContext
	fewShot []fewShotExchange

	queue   *respond.System
	limiter *rate.Limiter

	mu         sync.Mutex
	turnCancel context.CancelFunc
	turnCtx    context.Context

	reactWG sync.WaitGroup
	randInt func(n int) int
}

// NewManager wires a manager for one session.
func NewManager(cfg Config, deps Deps, user UserContext, logger *zap.Logger) *Manager {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	m := &Manager{
		cfg:       cfg,
		registry:  deps.Registry,
		sanitizer: deps.Sanitizer,
		tts:       deps.TTS,
		intros:    deps.Intros,
		detector:  deps.Detector,
		memory:    deps.Memory,
		turns:     deps.Turns,
		gen:       deps.Generator,
		plane:     deps.Plane,
		observer:  deps.Observer,
		logger:    logger.With(zap.String("component", "agent")),
		user:      user,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 2),
		randInt:   rand.Intn,
	}
	m.turnCtx, m.turnCancel = context.WithCancel(context.Background())
	return m
}

// SetQueue attaches the guaranteed response queue. The queue calls back into
// the manager through the Responder interface.
func (m *Manager) SetQueue(q *respond.System) { m.queue = q }

// ApplyVariations loads few-shot exchanges from the session's scenario plan.
func (m *Manager) ApplyVariations(v scenario.Variations) {
	var shots []fewShotExchange
	for _, opener := range v.Openers {
		shots = append(shots, fewShotExchange{ask: opener, answer: "Très bonne idée, lançons-nous."})
	}
	for _, followup := range v.Followups {
		shots = append(shots, fewShotExchange{ask: followup, answer: "Bien sûr, je précise tout de suite."})
	}
	if len(shots) > 3 {
		shots = shots[:3]
	}
	m.fewShot = shots
}

// ProcessUserMessage runs one user turn end to end and returns the persona
// utterances in speaking order.
func (m *Manager) ProcessUserMessage(ctx context.Context, message string) ([]types.Utterance, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil
	}

	// A new user utterance closes the previous turn: pending reactions are
	// aborted and still-queued MEDIUM events dropped.
	m.mu.Lock()
	m.turnCancel()
	m.turnCtx, m.turnCancel = context.WithCancel(context.Background())
	turnCtx := m.turnCtx
	m.mu.Unlock()
	if m.queue != nil {
		m.queue.CancelQueuedMedium()
	}

	if err := m.memory.Register(types.NewUtterance(types.UserSpeakerID, message, types.ResponseNormal)); err != nil {
		m.logger.Warn("failed to register user utterance", zap.Error(err))
	}

	started := time.Now()
	events := m.detector.Detect(message, types.UserSpeakerID, m.memory.Participation())
	m.observer.ObserveDetection(time.Since(started))

	if len(events) > 0 {
		return m.respondToBatch(ctx, events)
	}

	next := m.turns.Next(m.memory)
	utt, err := m.speak(ctx, speakRequest{
		personaID:   next,
		userMessage: message,
		respType:    types.ResponseNormal,
	})
	if err != nil {
		return nil, err
	}

	m.scheduleReactions(turnCtx, next, utt.Text)
	return []types.Utterance{utt}, nil
}

// respondToBatch enqueues the detected events in order and waits for the
// delivered utterances, preserving left-to-right addressing order.
func (m *Manager) respondToBatch(ctx context.Context, events []types.InterpellationEvent) ([]types.Utterance, error) {
	if m.queue == nil {
		// No queue wired (single-agent bypass); answer inline.
		var out []types.Utterance
		for _, ev := range events {
			utt, err := m.RespondToEvent(ctx, ev, false)
			if err != nil {
				utt = m.FallbackUtterance(ctx, ev)
			}
			out = append(out, utt)
		}
		return out, nil
	}

	pendings := make([]*respond.Pending, 0, len(events))
	for _, ev := range events {
		pendings = append(pendings, m.queue.Enqueue(ev))
	}

	var out []types.Utterance
	for _, p := range pendings {
		select {
		case utt := <-p.Done:
			out = append(out, utt)
		case <-p.Cancelled:
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}

type speakRequest struct {
	personaID   string
	userMessage string
	respType    types.ResponseType
	event       *types.InterpellationEvent
	reaction    bool
	instruction bool
	tight       bool
	// strict propagates generation failures to the caller instead of
	// substituting the scripted fallback; the response queue owns the
	// retry and fallback policy for addressed events.
	strict bool
}

// speak runs the full per-utterance pipeline: generate, sanitize, guard
// against repetition, synthesize, publish, advance the cursor.
func (m *Manager) speak(ctx context.Context, req speakRequest) (types.Utterance, error) {
	persona := m.registry.Persona(req.personaID)

	text, fellBack, err := m.generateText(ctx, persona, req, false)
	if err != nil {
		return types.Utterance{}, err
	}

	text, regenerated, err := m.sanitizeWithRetry(ctx, persona, req, text)
	if err != nil {
		return types.Utterance{}, err
	}
	fellBack = fellBack || regenerated

	if req.event != nil {
		text = enforcePreamble(text, persona.Preambles)
	}

	respType := req.respType
	if fellBack {
		respType = types.ResponseFallback
	}

	utt := types.NewUtterance(persona.ID, text, respType)
	if err := m.registerWithGuard(ctx, persona, req, &utt); err != nil {
		return types.Utterance{}, err
	}

	emotion := DetectEmotion(persona.Role, utt.Text)
	pcm, synthErr := m.tts.Synthesize(ctx, utt.Text, persona.ID, emotion)
	if synthErr != nil {
		// Audio failed but the text stands: publish a short silence so
		// the track keeps its cadence and advance the turn anyway.
		m.logger.Error("synthesis failed, emitting silence",
			zap.String("persona_id", persona.ID),
			zap.String("code", string(types.GetErrorCode(synthErr))),
			zap.Error(synthErr),
		)
		pcm = tts.SilenceFrame(300 * time.Millisecond)
	}
	if err := m.plane.PublishPCM(ctx, persona.ID, pcm); err != nil {
		m.logger.Error("media publish failed", zap.String("persona_id", persona.ID), zap.Error(err))
	}

	m.memory.AdvanceTurn(persona.ID)
	utt.Emotion = emotion

	if persona.Role == types.RoleAnimator && !req.reaction {
		m.relayFloorAssignments(utt.Text)
	}
	return utt, nil
}

// relayFloorAssignments scans what the animator just said: when it hands the
// floor to a panelist, by name, role or a general question, the assignment is
// enqueued so the elected persona answers without waiting for the user.
func (m *Manager) relayFloorAssignments(text string) {
	if m.queue == nil {
		return
	}
	started := time.Now()
	events := m.detector.Detect(text, m.registry.AnimatorID(), m.memory.Participation())
	m.observer.ObserveDetection(time.Since(started))
	for _, ev := range events {
		m.queue.Enqueue(ev)
	}
}

// generateText calls the text generator with one shortened-prompt retry and
// scripted fallback, plus the language and animator-engagement guards.
func (m *Manager) generateText(ctx context.Context, persona types.Persona, req speakRequest, noMetaPrefix bool) (string, bool, error) {
	in := promptInput{
		persona:      persona,
		user:         m.user,
		event:        req.event,
		history:      m.memory.Recent(memoryDepth),
		userMessage:  req.userMessage,
		reaction:     req.reaction,
		instruction:  req.instruction,
		fewShot:      m.fewShot,
		tight:        req.tight,
		noMetaPrefix: noMetaPrefix,
		nameFor:      m.displayName,
	}
	if last, ok := m.memory.LastUtterance(persona.ID); ok {
		in.lastResponse = last
	}

	maxTokens := m.cfg.MaxTokens
	temperature := temperatureFor(persona.Role)
	if req.reaction {
		maxTokens = m.cfg.ReactionMaxTokens
	}

	started := time.Now()
	text, err := m.gen.Generate(ctx, buildMessages(in), temperature, maxTokens)
	m.observer.ObserveGeneration(time.Since(started), err == nil)

	if err != nil && !in.tight {
		m.logger.Warn("generation failed, retrying with shortened prompt",
			zap.String("persona_id", persona.ID),
			zap.String("code", string(types.GetErrorCode(err))),
		)
		in.tight = true
		started = time.Now()
		text, err = m.gen.Generate(ctx, buildMessages(in), temperature, maxTokens)
		m.observer.ObserveGeneration(time.Since(started), err == nil)
	}
	if err != nil {
		if req.strict {
			return "", false, err
		}
		m.logger.Warn("generation exhausted, using scripted fallback",
			zap.String("persona_id", persona.ID),
			zap.Error(err),
		)
		return m.scriptedText(persona.ID, req), true, nil
	}

	if containsEnglish(text) {
		m.logger.Warn("generated text drifted out of French, using scripted fallback",
			zap.String("persona_id", persona.ID),
		)
		return m.scriptedText(persona.ID, req), true, nil
	}
	if persona.Role == types.RoleAnimator && !req.reaction {
		text = keepAnimatorEngaged(text)
	}
	return text, false, nil
}

// sanitizeWithRetry cleans the text, regenerating once without meta prefix
// when sanitizing empties it, then falling back to the script.
func (m *Manager) sanitizeWithRetry(ctx context.Context, persona types.Persona, req speakRequest, text string) (string, bool, error) {
	clean, err := m.sanitizer.Clean(text)
	if err == nil {
		return clean, false, nil
	}
	if types.GetErrorCode(err) != types.ErrEmptyAfterSanitize {
		return "", false, err
	}

	regen, _, genErr := m.generateText(ctx, persona, req, true)
	if genErr == nil {
		if clean, cleanErr := m.sanitizer.Clean(regen); cleanErr == nil {
			return clean, false, nil
		}
	} else if req.strict {
		return "", false, genErr
	}
	return m.scriptedText(persona.ID, req), true, nil
}

// registerWithGuard appends to memory, regenerating once when the repetition
// guard rejects the text.
func (m *Manager) registerWithGuard(ctx context.Context, persona types.Persona, req speakRequest, utt *types.Utterance) error {
	err := m.memory.Register(*utt)
	if err == nil {
		return nil
	}
	if !types.IsRetryable(err) {
		return err
	}

	m.logger.Warn("repetition guard rejected response, regenerating",
		zap.String("persona_id", persona.ID),
	)
	req.tight = true
	text, fellBack, genErr := m.generateText(ctx, persona, req, false)
	if genErr != nil {
		return genErr
	}
	if clean, cleanErr := m.sanitizer.Clean(text); cleanErr == nil {
		text = clean
	}
	if req.event != nil {
		text = enforcePreamble(text, persona.Preambles)
	}

	next := types.NewUtterance(persona.ID, text, utt.ResponseType)
	if fellBack {
		next.ResponseType = types.ResponseFallback
	}
	if err := m.memory.Register(next); err != nil {
		next.Text = m.scriptedText(persona.ID, req)
		next.ResponseType = types.ResponseFallback
		if err := m.memory.Register(next); err != nil {
			m.logger.Error("repetition guard still rejecting scripted fallback",
				zap.String("persona_id", persona.ID),
				zap.Error(err),
			)
		}
	}
	*utt = next
	return nil
}

func (m *Manager) scriptedText(personaID string, req speakRequest) string {
	if req.event != nil {
		return addressedFallbackText(personaID, req.event.Type)
	}
	return generationFallbackText(personaID)
}

// RespondToEvent serves the guaranteed response queue: full pipeline, strict
// error propagation so the queue can retry or fall back.
func (m *Manager) RespondToEvent(ctx context.Context, ev types.InterpellationEvent, tight bool) (types.Utterance, error) {
	return m.speak(ctx, speakRequest{
		personaID:   ev.PersonaID,
		userMessage: ev.Message,
		respType:    types.ResponseInterpellation,
		event:       &ev,
		tight:       tight,
		strict:      true,
	})
}

// FallbackUtterance delivers the scripted answer for an addressed event.
// Synthesis is detached from the expired request context so the persona is
// still heard.
func (m *Manager) FallbackUtterance(ctx context.Context, ev types.InterpellationEvent) types.Utterance {
	persona := m.registry.Persona(ev.PersonaID)
	text := addressedFallbackText(persona.ID, ev.Type)

	utt := types.NewUtterance(persona.ID, text, types.ResponseFallback)
	if err := m.memory.Register(utt); err != nil {
		m.logger.Warn("failed to register scripted fallback", zap.Error(err))
	}

	synthCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	emotion := types.NeutralProfile()
	pcm, err := m.tts.Synthesize(synthCtx, text, persona.ID, emotion)
	if err != nil {
		m.logger.Error("fallback synthesis failed, emitting silence",
			zap.String("persona_id", persona.ID),
			zap.Error(err),
		)
		pcm = tts.SilenceFrame(300 * time.Millisecond)
	}
	if err := m.plane.PublishPCM(synthCtx, persona.ID, pcm); err != nil {
		m.logger.Error("media publish failed", zap.String("persona_id", persona.ID), zap.Error(err))
	}

	m.memory.AdvanceTurn(persona.ID)
	utt.Emotion = emotion
	return utt
}

// scheduleReactions spawns up to MaxReactions short overlap cues from the
// other personas, each after a randomized delay. A new user utterance aborts
// whatever has not fired yet.
func (m *Manager) scheduleReactions(turnCtx context.Context, mainSpeaker, triggerText string) {
	scheduled := 0
	for _, persona := range m.registry.All() {
		if scheduled >= m.cfg.MaxReactions {
			break
		}
		if persona.ID == mainSpeaker {
			continue
		}
		if !m.turns.CanReact(m.memory, persona.ID) {
			continue
		}
		if !m.limiter.Allow() {
			break
		}

		delay := m.reactionDelay()
		scheduled++
		m.reactWG.Add(1)
		go func(personaID string) {
			defer m.reactWG.Done()
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-turnCtx.Done():
				return
			case <-timer.C:
			}
			if _, err := m.speak(turnCtx, speakRequest{
				personaID:   personaID,
				userMessage: triggerText,
				respType:    types.ResponseReaction,
				reaction:    true,
			}); err != nil {
				m.logger.Debug("reaction aborted", zap.String("persona_id", personaID), zap.Error(err))
			}
		}(persona.ID)
	}
}

func (m *Manager) reactionDelay() time.Duration {
	span := int(m.cfg.ReactionMaxDelay - m.cfg.ReactionMinDelay)
	if span <= 0 {
		return m.cfg.ReactionMinDelay
	}
	return m.cfg.ReactionMinDelay + time.Duration(m.randInt(span))
}

// Wait blocks until in-flight reactions finish. Tests and session teardown
// use it.
func (m *Manager) Wait() {
	m.mu.Lock()
	m.turnCancel()
	m.mu.Unlock()
	m.reactWG.Wait()
}

// GenerateIntroduction returns the opening monologue for an exercise,
// serving it from the cache when hot.
func (m *Manager) GenerateIntroduction(ctx context.Context, exerciseID string) (string, []byte, error) {
	if cached, ok, err := m.intros.Get(ctx, exerciseID); err == nil && ok {
		return cached.Text, cached.PCM, nil
	}

	animator := m.registry.Persona(m.registry.AnimatorID())
	messages := []generator.Message{
		{Role: "system", Content: interpolate(animator.SystemTemplate, m.user)},
		{Role: "user", Content: "Ouvre l'émission en direct : souhaite la bienvenue, présente le sujet du jour et les invités du plateau, en quatre phrases maximum."},
	}

	text, err := m.gen.Generate(ctx, messages, temperatureFor(animator.Role), m.cfg.MaxTokens)
	if err != nil {
		m.logger.Warn("introduction generation failed, using script", zap.Error(err))
		text = "Bonsoir et bienvenue sur notre plateau ! Ce soir, nous débattons d'un sujet passionnant avec nos invités. Installez-vous, le débat commence."
	}
	if clean, cleanErr := m.sanitizer.Clean(text); cleanErr == nil {
		text = clean
	}

	pcm, err := m.tts.Synthesize(ctx, text, animator.ID, types.EmotionProfile{Primary: types.EmotionEnthusiasm, Intensity: 0.7})
	if err != nil {
		return text, nil, err
	}

	if err := m.intros.Put(ctx, exerciseID, text, pcm); err != nil {
		m.logger.Warn("failed to cache introduction", zap.Error(err))
	}
	return text, pcm, nil
}

// Relaunch has the animator break a long silence with an encouraging prompt.
func (m *Manager) Relaunch(ctx context.Context) (types.Utterance, error) {
	return m.speak(ctx, speakRequest{
		personaID:   m.registry.AnimatorID(),
		userMessage: "Le participant reste silencieux depuis un moment. Relance-le avec une question simple et encourageante sur le sujet du jour.",
		respType:    types.ResponseDirective,
		instruction: true,
	})
}

// GenerateAgentResponse produces text and emotion for one persona without
// touching the media plane. The session bypass path uses it directly.
func (m *Manager) GenerateAgentResponse(ctx context.Context, personaID, userMessage string) (string, types.EmotionProfile, error) {
	persona := m.registry.Persona(personaID)
	text, _, err := m.generateText(ctx, persona, speakRequest{
		personaID:   personaID,
		userMessage: userMessage,
		respType:    types.ResponseNormal,
	}, false)
	if err != nil {
		return "", types.NeutralProfile(), err
	}
	if clean, cleanErr := m.sanitizer.Clean(text); cleanErr == nil {
		text = clean
	}
	return text, DetectEmotion(persona.Role, text), nil
}

func (m *Manager) displayName(speakerID string) string {
	if speakerID == types.UserSpeakerID {
		if m.user.Name != "" {
			return m.user.Name
		}
		return "Participant"
	}
	return m.registry.Persona(speakerID).DisplayName
}

// enforcePreamble guarantees the first clause opens with an accepted
// acknowledgement formula.
func enforcePreamble(text string, preambles []string) string {
	if len(preambles) == 0 {
		return text
	}
	for _, p := range preambles {
		if strings.HasPrefix(strings.ToLower(text), strings.ToLower(p)) {
			return text
		}
	}
	first := []rune(text)
	if len(first) > 0 {
		first[0] = []rune(strings.ToLower(string(first[0])))[0]
	}
	return preambles[0] + ", " + string(first)
}

// keepAnimatorEngaged makes sure the animator always relaunches the debate.
func keepAnimatorEngaged(text string) string {
	if strings.Contains(text, "?") {
		return text
	}
	return strings.TrimRight(text, " ") + " Et vous, qu'en pensez-vous ?"
}

var englishMarkers = []string{
	" the ", " and ", " you ", " this ", " that ", " with ", " have ", " what ", " about ",
}

// containsEnglish flags obvious language drift in a generated answer.
func containsEnglish(text string) bool {
	lower := " " + strings.ToLower(text) + " "
	hits := 0
	for _, marker := range englishMarkers {
		hits += strings.Count(lower, marker)
	}
	return hits >= 2
}
