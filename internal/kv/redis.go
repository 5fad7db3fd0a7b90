package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is the redis-backed Store.
type Redis struct {
	client *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedis connects to redis and verifies the connection with a ping.
func NewRedis(config Config, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	r := &Redis{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "kv")),
	}

	r.logger.Info("kv store initialized",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
	)

	return r, nil
}

// Get returns the value for key, or ErrMiss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("kv store is closed")
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		r.logger.Error("kv get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("kv get failed: %w", err)
	}

	return val, nil
}

// SetEx stores value under key with the given TTL.
func (r *Redis) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("kv store is closed")
	}

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}

	if err := r.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("kv setex failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("kv setex failed: %w", err)
	}

	return nil
}

// PushRecent prepends value to the list at key and trims it to maxLen.
func (r *Redis) PushRecent(ctx context.Context, key string, value []byte, maxLen int64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("kv store is closed")
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("kv push failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("kv push failed: %w", err)
	}

	return nil
}

// Recent returns up to maxLen newest entries of the list at key.
func (r *Redis) Recent(ctx context.Context, key string, maxLen int64) ([][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("kv store is closed")
	}

	vals, err := r.client.LRange(ctx, key, 0, maxLen-1).Result()
	if err != nil {
		return nil, fmt.Errorf("kv lrange failed: %w", err)
	}

	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Expire sets the TTL on an existing key.
func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("kv store is closed")
	}

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		r.logger.Error("kv expire failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("kv expire failed: %w", err)
	}

	return nil
}

// Ping checks the redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("kv store is closed")
	}

	return r.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	r.logger.Info("closing kv store")

	return r.client.Close()
}
