package tts

import (
	"context"
	"net/http"
	"sync"

	"github.com/eloquence-ai/studio/types"
)

// Request is one synthesis call to a provider.
type Request struct {
	Text         string
	VoiceID      string
	Params       types.VoiceParams
	Model        string
	OutputFormat string
}

// Provider synthesizes one request into audio bytes.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// lazyClient builds the bounded HTTP connection pool on first use. Network
// resources must never be allocated at construction time.
type lazyClient struct {
	pool PoolConfig
	once sync.Once
	c    *http.Client
}

func (l *lazyClient) get() *http.Client {
	l.once.Do(func() {
		l.c = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        l.pool.MaxConns,
				MaxIdleConnsPerHost: l.pool.MaxConnsPerHost,
				MaxConnsPerHost:     l.pool.MaxConnsPerHost,
				IdleConnTimeout:     l.pool.IdleConnTimeout,
			},
		}
	})
	return l.c
}
