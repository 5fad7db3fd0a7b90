// Package studio provides a top-level convenience entry point for
// assembling a coaching session with minimal boilerplate.
//
// Usage:
//
//	import "github.com/eloquence-ai/studio"
//
//	sess, err := studio.NewSession(ctx,
//	    studio.WithPlane(plane),
//	    studio.WithTranscriber(tr),
//	    studio.WithGenerator(gen),
//	    studio.WithSynthesizer(tts),
//	)
//	err = sess.Run(ctx)
//
// Every dependency left unset falls back to an in-process default, so a
// session can run entirely offline in tests and examples.
package studio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/agent"
	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/scenario"
	"github.com/eloquence-ai/studio/session"
)

// Option configures the session created by [NewSession].
type Option func(*builder)

type builder struct {
	cfg    session.Config
	deps   session.Deps
	logger *zap.Logger
}

// WithConfig replaces the default session configuration.
func WithConfig(cfg session.Config) Option {
	return func(b *builder) { b.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithStore sets the KV store backing caches and scenario history.
func WithStore(store kv.Store) Option {
	return func(b *builder) { b.deps.Store = store }
}

// WithPlane sets the media plane the personas publish audio into.
func WithPlane(plane media.Plane) Option {
	return func(b *builder) { b.deps.Plane = plane }
}

// WithTranscriber sets the source of final user utterances.
func WithTranscriber(tr session.Transcriber) Option {
	return func(b *builder) { b.deps.Transcriber = tr }
}

// WithGenerator sets the text generation backend.
func WithGenerator(gen generator.TextGenerator) Option {
	return func(b *builder) { b.deps.Generator = gen }
}

// WithSynthesizer sets the speech synthesis backend.
func WithSynthesizer(tts agent.Synthesizer) Option {
	return func(b *builder) { b.deps.TTS = tts }
}

// NewSession assembles a session for the room described by the plane's
// metadata. A plane, a transcriber, a generator and a synthesizer must
// be provided; the store defaults to an in-memory one.
func NewSession(ctx context.Context, opts ...Option) (*session.Session, error) {
	b := &builder{
		cfg:    session.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.deps.Plane == nil {
		return nil, fmt.Errorf("studio: a media plane is required (use WithPlane)")
	}
	if b.deps.Transcriber == nil {
		return nil, fmt.Errorf("studio: a transcriber is required (use WithTranscriber)")
	}
	if b.deps.Generator == nil {
		return nil, fmt.Errorf("studio: a text generator is required (use WithGenerator)")
	}
	if b.deps.TTS == nil {
		return nil, fmt.Errorf("studio: a synthesizer is required (use WithSynthesizer)")
	}
	if b.deps.Store == nil {
		b.deps.Store = kv.NewMemory()
	}
	if b.deps.Scenarios == nil {
		b.deps.Scenarios = scenario.NewGenerator(b.deps.Store, b.logger)
	}

	return session.New(ctx, b.cfg, b.deps, b.logger)
}
