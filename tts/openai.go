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

// OpenAI is the neutral-voice fallback provider.
type OpenAI struct {
	cfg    OpenAIConfig
	client *lazyClient
}

// NewOpenAI creates the fallback provider.
func NewOpenAI(cfg OpenAIConfig, pool PoolConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1-hd"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = "pcm"
	}
	return &OpenAI{
		cfg:    cfg,
		client: &lazyClient{pool: pool},
	}
}

func (p *OpenAI) Name() string { return "openai-tts" }

type openAIRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize posts the text to /v1/audio/speech. Voice parameters are
// ignored: the fallback always speaks with its configured neutral voice.
func (p *OpenAI) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	body := openAIRequest{
		Model:          p.cfg.Model,
		Input:          req.Text,
		Voice:          p.cfg.Voice,
		ResponseFormat: p.cfg.ResponseFormat,
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/audio/speech",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.get().Do(httpReq)
	if err != nil {
		code := types.ErrTTSNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = types.ErrTTSTimeout
		}
		return nil, types.NewError(code, "openai tts request failed").
			WithProvider(p.Name()).
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, types.NewError(types.TTSHTTPCode(resp.StatusCode),
			fmt.Sprintf("openai tts error: %s", string(errBody))).
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
