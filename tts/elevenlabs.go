package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/eloquence-ai/studio/types"
)

// ElevenLabs is the primary synthesis provider.
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	client *lazyClient
}

// NewElevenLabs creates the primary provider. The connection pool is
// allocated lazily on the first request.
func NewElevenLabs(cfg ElevenLabsConfig, pool PoolConfig) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_flash_v2_5"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "pcm_16000"
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &lazyClient{pool: pool},
	}
}

func (p *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// Synthesize posts the text to /v1/text-to-speech/{voice_id} and returns
// the raw audio bytes in the configured output format.
func (p *ElevenLabs) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	format := req.OutputFormat
	if format == "" {
		format = p.cfg.OutputFormat
	}

	params := req.Params.Clamp()
	body := elevenLabsRequest{
		Text:    req.Text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       params.Stability,
			SimilarityBoost: params.Similarity,
			Style:           params.Style,
			UseSpeakerBoost: params.SpeakerBoost,
		},
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), req.VoiceID, format)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.get().Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrTTSTimeout, "elevenlabs request timed out").
				WithProvider(p.Name()).
				WithRetryable(true).
				WithCause(err)
		}
		return nil, types.NewError(types.ErrTTSNetwork, "elevenlabs request failed").
			WithProvider(p.Name()).
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, types.NewError(types.TTSHTTPCode(resp.StatusCode),
			fmt.Sprintf("elevenlabs error: %s", string(errBody))).
			WithProvider(p.Name()).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrTTSDecode, "failed to read audio body").
			WithProvider(p.Name()).
			WithCause(err)
	}
	return audio, nil
}
