package kv

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrMiss is returned when a key does not exist or has expired.
var ErrMiss = fmt.Errorf("kv: miss")

// IsMiss reports whether an error is a cache miss.
func IsMiss(err error) bool {
	return err == ErrMiss
}

// Store is the minimal surface the orchestrator needs from the KV layer:
// plain value reads, SETEX-style writes, and a bounded LPUSH/LTRIM list.
type Store interface {
	// Get returns the value for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetEx stores value under key with the given TTL (SETEX semantics).
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PushRecent prepends value to the list at key and trims the list to
	// maxLen entries (LPUSH + LTRIM).
	PushRecent(ctx context.Context, key string, value []byte, maxLen int64) error

	// Recent returns up to maxLen entries of the list at key, newest first.
	Recent(ctx context.Context, key string, maxLen int64) ([][]byte, error)

	// Expire sets the TTL on an existing key (value or list).
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping checks store liveness.
	Ping(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// Config holds redis connection settings for the KV layer.
type Config struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Password     string        `yaml:"password" json:"password"`
	DB           int           `yaml:"db" json:"db"`
	DefaultTTL   time.Duration `yaml:"default_ttl" json:"default_ttl"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// DefaultConfig returns the default KV configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		DefaultTTL:   24 * time.Hour,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// Open connects to redis with the given config. When the connection cannot
// be established it logs once and returns an in-memory store instead, so
// callers always get a working Store.
func Open(config Config, logger *zap.Logger) Store {
	store, err := NewRedis(config, logger)
	if err != nil {
		logger.Warn("kv store unavailable, degrading to in-memory cache",
			zap.String("addr", config.Addr),
			zap.Error(err),
		)
		return NewMemory()
	}
	return store
}
