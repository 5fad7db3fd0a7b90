package tts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
	"github.com/eloquence-ai/studio/voice"
)

// Metrics receives synthesis observations. internal/metrics provides the
// prometheus-backed implementation; the zero value of the client uses a
// no-op.
type Metrics interface {
	ObserveSynthesis(provider string, total time.Duration, attempts int, success bool)
	ObserveCache(hit bool)
	ObserveFallback()
}

type nopMetrics struct{}

func (nopMetrics) ObserveSynthesis(string, time.Duration, int, bool) {}
func (nopMetrics) ObserveCache(bool)                                 {}
func (nopMetrics) ObserveFallback()                                  {}

// Stats is the lightweight snapshot served on /metrics-lite.
type Stats struct {
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	SuccessRate   float64 `json:"success_rate"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	TotalRequests int64   `json:"total_requests"`
	CacheSize     int     `json:"cache_size"`
}

// Client is the emotion-aware synthesis pipeline: cache, primary retry
// ladder, fallback provider, PCM normalization.
type Client struct {
	cfg      Config
	registry *voice.Registry
	primary  Provider
	fallback Provider
	cache    *audioCache
	logger   *zap.Logger
	metrics  Metrics

	mu           sync.Mutex
	total        int64
	successes    int64
	cacheLookups int64
	cacheHits    int64
	latencySum   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics wires a metrics sink into the client.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithProviders overrides the primary and fallback providers.
func WithProviders(primary, fallback Provider) Option {
	return func(c *Client) {
		c.primary = primary
		c.fallback = fallback
	}
}

// NewClient builds the synthesis pipeline. No network resources are
// allocated until the first request.
func NewClient(cfg Config, registry *voice.Registry, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		registry: registry,
		primary:  NewElevenLabs(cfg.ElevenLabs, cfg.Pool),
		fallback: NewOpenAI(cfg.OpenAI, cfg.Pool),
		cache:    newAudioCache(cfg.Cache),
		logger:   logger.With(zap.String("component", "tts")),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize turns sanitized text into PCM 16 kHz mono bytes for the given
// persona and emotion. On total failure it returns TTS_FAIL_ALL and the
// caller publishes a silence frame instead.
func (c *Client) Synthesize(ctx context.Context, text, personaID string, profile types.EmotionProfile) ([]byte, error) {
	start := time.Now()
	text = AdjustPunctuation(text, profile)

	key := CacheKey(text, personaID, profile)
	if pcm, ok := c.cache.get(key); ok {
		c.metrics.ObserveCache(true)
		c.recordCacheLookup(true)
		c.recordRequest(time.Since(start), true)
		return pcm, nil
	}
	c.metrics.ObserveCache(false)
	c.recordCacheLookup(false)

	voiceID, params := c.registry.VoiceFor(personaID, profile)
	req := Request{
		Text:         text,
		VoiceID:      voiceID,
		Params:       params,
		Model:        c.cfg.ElevenLabs.Model,
		OutputFormat: c.cfg.ElevenLabs.OutputFormat,
	}

	pcm, err := c.synthesizePrimary(ctx, req)
	if err != nil {
		pcm, err = c.synthesizeFallback(ctx, req, err)
	}
	if err != nil {
		c.recordRequest(time.Since(start), false)
		return nil, err
	}

	c.cache.put(key, pcm)
	c.recordRequest(time.Since(start), true)
	return pcm, nil
}

// synthesizePrimary walks the retry ladder: per-attempt timeouts scale
// ×1.0, ×1.5, ×2.0, ×2.5 and back-off doubles from the initial delay.
func (c *Client) synthesizePrimary(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			select {
			case <-ctx.Done():
				return nil, types.NewError(types.ErrTTSTimeout, "synthesis cancelled").
					WithProvider(c.primary.Name()).
					WithCause(ctx.Err())
			case <-time.After(delay):
			}
		}

		timeout := time.Duration(float64(c.cfg.AttemptTimeout) * (1.0 + 0.5*float64(attempt)))
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		audio, err := c.primary.Synthesize(attemptCtx, req)
		cancel()

		if err == nil {
			pcm, decErr := NormalizePCM(audio)
			if decErr != nil {
				lastErr = decErr
				c.metrics.ObserveSynthesis(c.primary.Name(), time.Since(start), attempt+1, false)
				c.logger.Warn("primary audio decode failed, retrying",
					zap.Int("attempt", attempt+1),
					zap.String("code", string(types.GetErrorCode(decErr))),
				)
				continue
			}
			c.metrics.ObserveSynthesis(c.primary.Name(), time.Since(start), attempt+1, true)
			if attempt > 0 {
				c.logger.Info("synthesis succeeded after retries",
					zap.Int("retry_count", attempt),
					zap.String("voice_id", req.VoiceID),
				)
			}
			return pcm, nil
		}

		lastErr = err
		c.metrics.ObserveSynthesis(c.primary.Name(), time.Since(start), attempt+1, false)
		if !types.IsRetryable(err) {
			c.logger.Warn("primary synthesis failed with non-retryable error",
				zap.String("code", string(types.GetErrorCode(err))),
				zap.Error(err),
			)
			break
		}
		c.logger.Debug("primary synthesis attempt failed",
			zap.Int("attempt", attempt+1),
			zap.String("code", string(types.GetErrorCode(err))),
		)
	}

	return nil, lastErr
}

func (c *Client) synthesizeFallback(ctx context.Context, req Request, primaryErr error) ([]byte, error) {
	c.metrics.ObserveFallback()
	c.logger.Warn("falling back to secondary voice",
		zap.String("code", string(types.ErrTTSFallbackUsed)),
		zap.String("persona_voice", req.VoiceID),
		zap.Error(primaryErr),
	)

	fbCtx, cancel := context.WithTimeout(ctx, 2*c.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	audio, err := c.fallback.Synthesize(fbCtx, req)
	if err != nil {
		c.metrics.ObserveSynthesis(c.fallback.Name(), time.Since(start), 1, false)
		return nil, types.NewError(types.ErrTTSFailAll, "primary and fallback synthesis failed").
			WithProvider(c.fallback.Name()).
			WithCause(err)
	}

	pcm, decErr := NormalizePCM(audio)
	if decErr != nil {
		c.metrics.ObserveSynthesis(c.fallback.Name(), time.Since(start), 1, false)
		return nil, types.NewError(types.ErrTTSFailAll, "fallback audio decode failed").
			WithProvider(c.fallback.Name()).
			WithCause(decErr)
	}
	c.metrics.ObserveSynthesis(c.fallback.Name(), time.Since(start), 1, true)
	return pcm, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.InitialBackoff << (attempt - 1)
	if delay > c.cfg.MaxBackoff {
		delay = c.cfg.MaxBackoff
	}
	return delay
}

func (c *Client) recordRequest(latency time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if success {
		c.successes++
	}
	c.latencySum += latency
}

func (c *Client) recordCacheLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheLookups++
	if hit {
		c.cacheHits++
	}
}

// GetStats snapshots the counters served on /metrics-lite.
func (c *Client) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		TotalRequests: c.total,
		CacheSize:     c.cache.len(),
	}
	if c.total > 0 {
		stats.AvgLatencyMs = float64(c.latencySum.Milliseconds()) / float64(c.total)
		stats.SuccessRate = float64(c.successes) / float64(c.total)
	}
	if c.cacheLookups > 0 {
		stats.CacheHitRate = float64(c.cacheHits) / float64(c.cacheLookups)
	}
	return stats
}
