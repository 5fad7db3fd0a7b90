// Package config loads the studio configuration from defaults, an
// optional YAML file and environment variable overrides, in that order:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("studio.yaml").
//	    WithEnvPrefix("ELOQUENCE").
//	    Load()
//
// Environment keys are derived from the yaml tags of the nested
// configuration structs, so ELOQUENCE_TTS_ELEVENLABS_API_KEY reaches
// tts.Config.ElevenLabs.APIKey without any extra mapping code.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/media"
	"github.com/eloquence-ai/studio/session"
	"github.com/eloquence-ai/studio/tts"
)

// ServerConfig tunes the HTTP surface (health and metrics endpoints).
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig tunes the zap logger shared by every component.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputPaths defaults to stderr.
	OutputPaths  []string `yaml:"output_paths"`
	EnableCaller bool     `yaml:"enable_caller"`
}

// Config is the full studio configuration. The component sections reuse
// the config structs of the packages they feed, so defaults live in one
// place per package.
type Config struct {
	Server    ServerConfig       `yaml:"server"`
	Log       LogConfig          `yaml:"log"`
	Redis     kv.Config          `yaml:"redis"`
	TTS       tts.Config         `yaml:"tts"`
	Generator generator.Config   `yaml:"generator"`
	Media     media.BridgeConfig `yaml:"media"`
	Session   session.Config     `yaml:"session"`
}

// Loader assembles a Config (builder pattern).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader returns a loader with the ELOQUENCE env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "ELOQUENCE"}
}

// WithConfigPath sets the YAML file to read. A missing file is not an
// error; defaults and environment overrides still apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a validation step run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then file, then env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// setFieldsFromEnv walks the struct recursively. The env key for each
// field is the uppercased yaml tag appended to the parent prefix.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := envSegment(t.Field(i))
		if name == "" {
			continue
		}
		envKey := prefix + "_" + name

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	return nil
}

func envSegment(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	return strings.ToUpper(tag)
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration from path or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}
	return cfg
}

// Validate checks the structural invariants of the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "server.http_port out of range")
	}
	if c.Session.SilenceTimeout <= 0 {
		errs = append(errs, "session.silence_timeout must be positive")
	}
	if c.Session.WarnLatency > c.Session.MaxLatency {
		errs = append(errs, "session.warn_latency exceeds session.max_latency")
	}
	if c.Session.Respond.HighDeadline <= 0 || c.Session.Respond.MediumDeadline <= 0 {
		errs = append(errs, "session.respond deadlines must be positive")
	}
	if c.TTS.MaxAttempts < 1 {
		errs = append(errs, "tts.max_attempts must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RequireCredentials is an optional validator for production runs: both
// provider API keys must be present.
func RequireCredentials(c *Config) error {
	if c.TTS.ElevenLabs.APIKey == "" {
		return fmt.Errorf("tts.elevenlabs.api_key is required")
	}
	if c.Generator.APIKey == "" {
		return fmt.Errorf("generator.api_key is required")
	}
	return nil
}
