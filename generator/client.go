// Package generator is the HTTP client for the external text generation
// backend. The contract is a chat-style message list against an
// OpenAI-compatible endpoint; only the text of the first choice is
// consumed.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

// Message is one chat turn sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextGenerator is the surface the agent manager depends on; tests swap in
// a scripted implementation.
type TextGenerator interface {
	Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Config holds backend connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns the production generator settings.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 4 * time.Second,
	}
}

// Client calls the chat completion endpoint.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient builds the generator client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 4 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With(zap.String("component", "generator")),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs one chat completion and returns the generated text.
func (c *Client) Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, _ := json.Marshal(body)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions",
		bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", types.NewError(types.ErrGenTimeout, "generation timed out").
				WithRetryable(true).
				WithCause(err)
		}
		return "", types.NewError(types.ErrGenNetwork, "generation request failed").
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", types.NewError(types.GenHTTPCode(resp.StatusCode),
			fmt.Sprintf("generator error: %s", string(errBody))).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewError(types.ErrGenEmpty, "unparseable generator response").WithCause(err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", types.NewError(types.ErrGenEmpty, "generator returned no text")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
