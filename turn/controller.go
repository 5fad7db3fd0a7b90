// Package turn picks the next speaker when nobody was addressed. The
// decision is a pure function of the session memory, the ring order and
// the controller configuration, so it is fully deterministic.
package turn

import (
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/conversation"
	"github.com/eloquence-ai/studio/types"
)

// Config tunes the rotation.
type Config struct {
	// AnimatorEvery re-anchors the debate on the animator every N user
	// turns. 0 disables the bias.
	AnimatorEvery int `yaml:"animator_every" json:"animator_every"`
	// SelfDialogueWindow blocks a persona from speaking twice within the
	// window unless force-addressed.
	SelfDialogueWindow time.Duration `yaml:"self_dialogue_window" json:"self_dialogue_window"`
	// MaxShare caps a persona's fraction of the recent persona turns.
	MaxShare float64 `yaml:"max_share" json:"max_share"`
	// ShareLookback is how many persona turns MaxShare is measured over.
	ShareLookback int `yaml:"share_lookback" json:"share_lookback"`
}

// DefaultConfig returns the production rotation settings.
func DefaultConfig() Config {
	return Config{
		AnimatorEvery:      3,
		SelfDialogueWindow: 30 * time.Second,
		MaxShare:           0.4,
		ShareLookback:      5,
	}
}

// Controller rotates the floor over the persona ring.
type Controller struct {
	cfg        Config
	ring       []string
	animatorID string
	logger     *zap.Logger
}

// NewController builds a controller over the given ring order.
func NewController(personas []types.Persona, cfg Config, logger *zap.Logger) *Controller {
	c := &Controller{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "turn")),
	}
	for _, p := range personas {
		c.ring = append(c.ring, p.ID)
		if p.Role == types.RoleAnimator && c.animatorID == "" {
			c.animatorID = p.ID
		}
	}
	return c
}

// Next elects the next speaker. The last speaker and personas inside the
// no-repeat window are skipped; the animator is preferred every N user
// turns; the monopolization cap is honored when any alternative exists.
func (c *Controller) Next(mem *conversation.Memory) string {
	if len(c.ring) == 0 {
		return ""
	}
	if len(c.ring) == 1 {
		return c.ring[0]
	}

	blocked := make(map[string]bool)
	for _, id := range mem.LastSpeakers(mem.NoRepeatWindow()) {
		blocked[id] = true
	}

	if c.animatorBiasDue(mem) && !blocked[c.animatorID] {
		c.logger.Debug("re-anchoring debate on animator",
			zap.Int("user_turns", mem.UserTurns()),
		)
		return c.animatorID
	}

	start := c.ringIndex(c.startingPoint(mem))

	// first pass honors the monopolization cap
	for i := 1; i <= len(c.ring); i++ {
		id := c.ring[(start+i)%len(c.ring)]
		if blocked[id] {
			continue
		}
		if mem.ShareOfRecent(id, c.cfg.ShareLookback) > c.cfg.MaxShare {
			continue
		}
		return id
	}

	// second pass relaxes the cap but never re-elects a blocked persona
	for i := 1; i <= len(c.ring); i++ {
		id := c.ring[(start+i)%len(c.ring)]
		if !blocked[id] {
			return id
		}
	}

	// everyone is blocked: take the ring successor of the last speaker
	return c.ring[(start+1)%len(c.ring)]
}

// CanReact reports whether a persona may produce a secondary reaction:
// not the last speaker, outside its self-dialogue window, and under the
// monopolization cap.
func (c *Controller) CanReact(mem *conversation.Memory, personaID string) bool {
	if last := mem.LastSpeakers(1); len(last) > 0 && last[0] == personaID {
		return false
	}
	if mem.SpokeWithin(personaID, c.cfg.SelfDialogueWindow) {
		return false
	}
	return mem.ShareOfRecent(personaID, c.cfg.ShareLookback) <= c.cfg.MaxShare
}

func (c *Controller) animatorBiasDue(mem *conversation.Memory) bool {
	if c.cfg.AnimatorEvery <= 0 || c.animatorID == "" {
		return false
	}
	turns := mem.UserTurns()
	return turns > 0 && turns%c.cfg.AnimatorEvery == 0
}

// startingPoint is the last persona speaker, falling back to the cursor
// and then to the ring head.
func (c *Controller) startingPoint(mem *conversation.Memory) string {
	if last := mem.LastSpeakers(1); len(last) > 0 {
		return last[0]
	}
	if cursor := mem.TurnCursor(); cursor != "" {
		return cursor
	}
	return c.ring[len(c.ring)-1]
}

func (c *Controller) ringIndex(id string) int {
	for i, rid := range c.ring {
		if rid == id {
			return i
		}
	}
	return len(c.ring) - 1
}
