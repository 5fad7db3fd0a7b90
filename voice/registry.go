// Package voice maps personas to synthesis voices and applies emotion
// overrides on top of each persona's base voice parameters.
package voice

import (
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

// Registry is the read-only persona → voice configuration table built at
// session start.
type Registry struct {
	personas map[string]types.Persona
	order    []string
	animator string
	logger   *zap.Logger
}

// NewRegistry builds a registry from the given personas. The first persona
// with the animator role becomes the fallback for unknown lookups.
func NewRegistry(personas []types.Persona, logger *zap.Logger) *Registry {
	r := &Registry{
		personas: make(map[string]types.Persona, len(personas)),
		logger:   logger.With(zap.String("component", "voice")),
	}
	for _, p := range personas {
		r.personas[p.ID] = p
		r.order = append(r.order, p.ID)
		if r.animator == "" && p.Role == types.RoleAnimator {
			r.animator = p.ID
		}
	}
	return r
}

// Lookup returns the persona for id and whether it was registered.
func (r *Registry) Lookup(id string) (types.Persona, bool) {
	p, ok := r.personas[id]
	return p, ok
}

// Persona returns the persona for id, substituting the animator when the id
// is unknown. The miss is logged and never surfaces to the user.
func (r *Registry) Persona(id string) types.Persona {
	if p, ok := r.personas[id]; ok {
		return p
	}
	r.logger.Warn("unknown persona, substituting animator",
		zap.String("code", string(types.ErrAgentUnknown)),
		zap.String("persona_id", id),
	)
	return r.personas[r.animator]
}

// All returns the registered personas in registration order.
func (r *Registry) All() []types.Persona {
	out := make([]types.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

// ByRole returns the first persona carrying the given role.
func (r *Registry) ByRole(role types.Role) (types.Persona, bool) {
	for _, id := range r.order {
		if p := r.personas[id]; p.Role == role {
			return p, true
		}
	}
	return types.Persona{}, false
}

// AnimatorID returns the id of the fallback animator persona.
func (r *Registry) AnimatorID() string {
	return r.animator
}

// VoiceFor resolves the provider voice id and the emotion-adjusted voice
// parameters for a synthesis request. Unknown personas fall back to the
// animator voice.
func (r *Registry) VoiceFor(personaID string, profile types.EmotionProfile) (string, types.VoiceParams) {
	p := r.Persona(personaID)
	return p.VoiceID, ApplyEmotion(p.BaseVoice, profile)
}
