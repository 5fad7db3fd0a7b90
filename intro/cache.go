// Package intro caches pre-generated opening monologues so a hot session
// start costs one KV round-trip instead of a generation and a synthesis.
package intro

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/internal/kv"
)

// TTL is how long a cached introduction stays valid.
const TTL = 24 * time.Hour

// Introduction pairs the monologue text with its synthesized audio.
type Introduction struct {
	Text string
	PCM  []byte
}

// Cache stores introductions under intro:<exercise_id>:{text,audio}.
type Cache struct {
	store  kv.Store
	logger *zap.Logger
}

// NewCache wraps the shared KV store.
func NewCache(store kv.Store, logger *zap.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With(zap.String("component", "intro")),
	}
}

func textKey(exerciseID string) string  { return fmt.Sprintf("intro:%s:text", exerciseID) }
func audioKey(exerciseID string) string { return fmt.Sprintf("intro:%s:audio", exerciseID) }

// Get returns the cached introduction for an exercise. Both text and audio
// must be present for a hit; a partial entry counts as a miss.
func (c *Cache) Get(ctx context.Context, exerciseID string) (*Introduction, bool, error) {
	text, err := c.store.Get(ctx, textKey(exerciseID))
	if kv.IsMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	pcm, err := c.store.Get(ctx, audioKey(exerciseID))
	if kv.IsMiss(err) {
		c.logger.Debug("introduction text present without audio, treating as miss",
			zap.String("exercise_id", exerciseID),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	c.logger.Debug("introduction cache hit", zap.String("exercise_id", exerciseID))
	return &Introduction{Text: string(text), PCM: pcm}, true, nil
}

// Put stores both halves of an introduction with the standard TTL.
func (c *Cache) Put(ctx context.Context, exerciseID, text string, pcm []byte) error {
	if err := c.store.SetEx(ctx, textKey(exerciseID), []byte(text), TTL); err != nil {
		return fmt.Errorf("store introduction text: %w", err)
	}
	if err := c.store.SetEx(ctx, audioKey(exerciseID), pcm, TTL); err != nil {
		return fmt.Errorf("store introduction audio: %w", err)
	}
	c.logger.Info("introduction cached",
		zap.String("exercise_id", exerciseID),
		zap.Int("text_len", len(text)),
		zap.Int("pcm_bytes", len(pcm)),
	)
	return nil
}
