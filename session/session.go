// Package session is the per-room composition root: it detects the exercise
// from room metadata, assembles the persona ensemble and drives the
// conversation loop until the room closes.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eloquence-ai/studio/agent"
	"github.com/eloquence-ai/studio/conversation"
	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/interpellation"
	"github.com/eloquence-ai/studio/intro"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/respond"
	"github.com/eloquence-ai/studio/sanitize"
	"github.com/eloquence-ai/studio/scenario"
	"github.com/eloquence-ai/studio/turn"
	"github.com/eloquence-ai/studio/types"
	"github.com/eloquence-ai/studio/voice"
)

// Transcript is one final user utterance from the transcriber. The
// media bridge produces these; tests feed them directly.
type Transcript = media.Transcript

// Transcriber feeds final utterances with end-of-speech boundaries.
type Transcriber interface {
	Transcripts() <-chan Transcript
}

// Config tunes the session loop.
type Config struct {
	// SilenceTimeout is how long the user may stay silent before the
	// animator relaunches the conversation.
	SilenceTimeout time.Duration `yaml:"silence_timeout" json:"silence_timeout"`
	// WarnLatency and MaxLatency bound the time to the first audio frame
	// after end of speech.
	WarnLatency time.Duration `yaml:"warn_latency" json:"warn_latency"`
	MaxLatency  time.Duration `yaml:"max_latency" json:"max_latency"`

	Agent        agent.Config        `yaml:"agent" json:"agent"`
	Turn         turn.Config         `yaml:"turn" json:"turn"`
	Conversation conversation.Config `yaml:"conversation" json:"conversation"`
	Respond      respond.Config      `yaml:"respond" json:"respond"`
}

// DefaultConfig returns the production session settings.
func DefaultConfig() Config {
	return Config{
		SilenceTimeout: 10 * time.Second,
		WarnLatency:    3 * time.Second,
		MaxLatency:     4 * time.Second,
		Agent:          agent.DefaultConfig(),
		Turn:           turn.DefaultConfig(),
		Conversation:   conversation.DefaultConfig(),
		Respond:        respond.DefaultConfig(),
	}
}

// Deps are the process-wide collaborators shared across sessions.
type Deps struct {
	Store       kv.Store
	TTS         agent.Synthesizer
	Generator   generator.TextGenerator
	Plane       media.Plane
	Transcriber Transcriber
	Scenarios   *scenario.Generator
	// AgentObserver and QueueObserver are optional telemetry hooks; the
	// metrics collector satisfies both.
	AgentObserver agent.Observer
	QueueObserver respond.Observer
}

// Session owns one room.
type Session struct {
	ID       string
	Exercise types.ExerciseTemplate
	Plan     types.ScenarioPlan

	cfg       Config
	user      agent.UserContext
	registry  *voice.Registry
	manager   *agent.Manager
	queue     *respond.System
	plane     media.Plane
	transcr   Transcriber
	scenarios *scenario.Generator
	logger    *zap.Logger

	userSpoke chan struct{}
}

// New reads the room metadata, resolves the exercise and assembles the
// session's component graph.
func New(ctx context.Context, cfg Config, deps Deps, logger *zap.Logger) (*Session, error) {
	meta, err := deps.Plane.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	tmpl, known := ResolveExercise(meta.ExerciseType)
	if !known {
		logger.Warn("unknown exercise type, defaulting to TV debate",
			zap.String("code", string(types.ErrExerciseUnknown)),
			zap.String("exercise_type", meta.ExerciseType),
		)
	}

	user := agent.UserContext{Name: meta.UserName, Subject: meta.UserSubject}
	if user.Name == "" {
		user.Name = "Participant"
	}
	if user.Subject == "" {
		user.Subject = "votre présentation"
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id), zap.String("exercise", tmpl.ID))

	personas := panelFor(tmpl)
	registry := voice.NewRegistry(personas, logger)

	turnCfg := cfg.Turn
	if !tmpl.MultiAgent {
		turnCfg.AnimatorEvery = 0
	}
	agentCfg := cfg.Agent
	if !tmpl.MultiAgent {
		// single-persona exercises have nobody to produce overlap cues
		agentCfg.MaxReactions = 0
	}

	manager := agent.NewManager(agentCfg, agent.Deps{
		Registry:  registry,
		Sanitizer: sanitize.New(personas, logger),
		TTS:       deps.TTS,
		Intros:    intro.NewCache(deps.Store, logger),
		Detector:  interpellation.NewDetector(personas, logger),
		Memory:    conversation.NewMemory(cfg.Conversation, logger),
		Turns:     turn.NewController(personas, turnCfg, logger),
		Generator: deps.Generator,
		Plane:     deps.Plane,
		Observer:  deps.AgentObserver,
	}, user, logger)

	s := &Session{
		ID:        id,
		Exercise:  tmpl,
		cfg:       cfg,
		user:      user,
		registry:  registry,
		manager:   manager,
		plane:     deps.Plane,
		transcr:   deps.Transcriber,
		scenarios: deps.Scenarios,
		logger:    logger,
		userSpoke: make(chan struct{}, 1),
	}

	if tmpl.MultiAgent {
		var opts []respond.Option
		if deps.QueueObserver != nil {
			opts = append(opts, respond.WithObserver(deps.QueueObserver))
		}
		s.queue = respond.NewSystem(cfg.Respond, manager, logger, opts...)
		manager.SetQueue(s.queue)
	}

	if deps.Scenarios != nil {
		profile := types.UserProfile{
			UserID:  user.Name,
			Name:    user.Name,
			Subject: user.Subject,
			Skill:   types.SkillIntermediate,
			Style:   types.StyleBalanced,
		}
		plan, err := deps.Scenarios.GeneratePlan(ctx, exerciseScenario[tmpl.ID], profile, types.Performance{OverallScore: 0.5})
		if err != nil {
			logger.Warn("scenario plan generation failed", zap.Error(err))
		} else {
			s.Plan = plan
			if def, ok := deps.Scenarios.Definition(plan.ScenarioID); ok {
				manager.ApplyVariations(deps.Scenarios.Variations(def, profile))
			}
		}
	}

	logger.Info("session assembled",
		zap.String("user", user.Name),
		zap.Int("personas", len(personas)),
		zap.Bool("multi_agent", tmpl.MultiAgent),
	)
	return s, nil
}

// Manager exposes the session's agent manager, mainly for the operator
// surface and tests.
func (s *Session) Manager() *agent.Manager { return s.manager }

// Run drives the session until ctx is cancelled or the media plane closes.
func (s *Session) Run(ctx context.Context) error {
	if s.queue != nil {
		s.queue.Start(ctx)
		defer s.queue.Close()
	}
	defer s.manager.Wait()

	// Opening monologue, served from the introduction cache when hot.
	if text, pcm, err := s.manager.GenerateIntroduction(ctx, s.Exercise.ID); err != nil {
		s.logger.Warn("introduction failed", zap.Error(err))
	} else if len(pcm) > 0 {
		if err := s.plane.PublishPCM(ctx, s.registry.AnimatorID(), pcm); err != nil {
			s.logger.Warn("introduction publish failed", zap.Error(err))
		}
		s.logger.Info("introduction delivered", zap.Int("chars", len(text)))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.consumeTranscripts(ctx) })
	g.Go(func() error { return s.consumeEvents(ctx) })
	g.Go(func() error { return s.watchSilence(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) consumeTranscripts(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr, ok := <-s.transcr.Transcripts():
			if !ok {
				return nil
			}
			if tr.SpeakerID != types.UserSpeakerID || tr.Text == "" {
				continue
			}
			s.noteUserActivity()

			started := time.Now()
			utts, err := s.manager.ProcessUserMessage(ctx, tr.Text)
			elapsed := time.Since(started)
			if err != nil {
				s.logger.Error("user turn failed", zap.Error(err))
				continue
			}

			switch {
			case elapsed > s.cfg.MaxLatency:
				s.logger.Error("first audio frame exceeded latency budget",
					zap.Duration("elapsed", elapsed))
			case elapsed > s.cfg.WarnLatency:
				s.logger.Warn("slow turn", zap.Duration("elapsed", elapsed))
			}
			s.logger.Debug("user turn complete",
				zap.Int("utterances", len(utts)),
				zap.Duration("elapsed", elapsed),
			)
		}
	}
}

func (s *Session) consumeEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.plane.Events():
			if !ok {
				return nil
			}
			s.logger.Info("participant event",
				zap.String("type", string(ev.Type)),
				zap.String("participant", ev.Participant),
			)
		}
	}
}

// watchSilence relaunches the conversation when the user stays quiet past
// the silence budget.
func (s *Session) watchSilence(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.SilenceTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.userSpoke:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.cfg.SilenceTimeout)
		case <-timer.C:
			s.logger.Info("long silence, relaunching the participant")
			if _, err := s.manager.Relaunch(ctx); err != nil {
				s.logger.Warn("relaunch failed", zap.Error(err))
			}
			timer.Reset(s.cfg.SilenceTimeout)
		}
	}
}

func (s *Session) noteUserActivity() {
	select {
	case s.userSpoke <- struct{}{}:
	default:
	}
}

// panelFor filters the shipped personas down to the exercise's panel.
func panelFor(tmpl types.ExerciseTemplate) []types.Persona {
	all := voice.DefaultPersonas()
	byID := make(map[string]types.Persona, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	var panel []types.Persona
	for _, id := range tmpl.PersonaIDs {
		if p, ok := byID[id]; ok {
			panel = append(panel, p)
		}
	}
	if len(panel) == 0 {
		panel = all
	}
	return panel
}
