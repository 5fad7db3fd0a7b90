// Package tts synthesizes persona speech. The primary provider is
// ElevenLabs with emotion-adjusted voice settings; OpenAI speech is the
// neutral-voice fallback. Output is always PCM 16 kHz mono.
package tts

import "time"

// ElevenLabsConfig configures the primary synthesis provider.
type ElevenLabsConfig struct {
	BaseURL      string `yaml:"base_url" json:"base_url"`
	APIKey       string `yaml:"api_key" json:"api_key"`
	Model        string `yaml:"model" json:"model"`
	OutputFormat string `yaml:"output_format" json:"output_format"`
}

// OpenAIConfig configures the fallback synthesis provider.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	APIKey         string `yaml:"api_key" json:"api_key"`
	Model          string `yaml:"model" json:"model"`
	Voice          string `yaml:"voice" json:"voice"`
	ResponseFormat string `yaml:"response_format" json:"response_format"`
}

// PoolConfig bounds the shared HTTP connection pool. The pool is created
// lazily on first synthesis, never at construction time.
type PoolConfig struct {
	MaxConns        int           `yaml:"max_conns" json:"max_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host" json:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" json:"idle_conn_timeout"`
}

// CacheConfig bounds the in-process synthesis cache.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries" json:"max_entries"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
}

// Config holds every tunable of the synthesis pipeline.
type Config struct {
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs" json:"elevenlabs"`
	OpenAI     OpenAIConfig     `yaml:"openai" json:"openai"`
	Pool       PoolConfig       `yaml:"pool" json:"pool"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`

	// MaxAttempts is the primary-provider retry ladder length.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// InitialBackoff doubles on every retry, capped at MaxBackoff.
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	// AttemptTimeout is scaled per attempt: ×1.0, ×1.5, ×2.0, ×2.5.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" json:"attempt_timeout"`
}

// DefaultConfig returns the production defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		ElevenLabs: ElevenLabsConfig{
			BaseURL:      "https://api.elevenlabs.io",
			Model:        "eleven_flash_v2_5",
			OutputFormat: "pcm_16000",
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com",
			Model:          "tts-1-hd",
			Voice:          "alloy",
			ResponseFormat: "pcm",
		},
		Pool: PoolConfig{
			MaxConns:        20,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			MaxEntries: 256,
			TTL:        1 * time.Hour,
		},
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		AttemptTimeout: 3 * time.Second,
	}
}
