package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/session"
	"github.com/eloquence-ai/studio/tts"
)

// DefaultConfig returns the production defaults. Component sections
// delegate to the defaults of the packages they configure.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Redis:     kv.DefaultConfig(),
		TTS:       tts.DefaultConfig(),
		Generator: generator.DefaultConfig(),
		Media:     media.DefaultBridgeConfig(),
		Session:   session.DefaultConfig(),
	}
}

// Build constructs the zap logger described by the section.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(c.OutputPaths) > 0 {
		zc.OutputPaths = c.OutputPaths
	}
	zc.DisableCaller = !c.EnableCaller

	return zc.Build()
}
