package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/internal/metrics"
	"github.com/eloquence-ai/studio/tts"
)

type fixedTTSStats struct{ stats tts.Stats }

func (f fixedTTSStats) GetStats() tts.Stats { return f.stats }

type fixedInterpStats struct{ stats metrics.InterpellationStats }

func (f fixedInterpStats) InterpellationSnapshot() metrics.InterpellationStats { return f.stats }

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewHandler(StatsSources{}, nil, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsLiteShape(t *testing.T) {
	src := StatsSources{
		TTS: fixedTTSStats{stats: tts.Stats{
			AvgLatencyMs:  240.5,
			SuccessRate:   0.97,
			CacheHitRate:  0.42,
			TotalRequests: 120,
			CacheSize:     31,
		}},
		Interpellations: fixedInterpStats{stats: metrics.InterpellationStats{
			TotalInterpellations:  18,
			SuccessfulResponses:   17,
			SuccessRate:           17.0 / 18.0,
			AverageResponseTimeMs: 840,
			QueueSize:             2,
		}},
	}
	srv := httptest.NewServer(NewHandler(src, nil, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics-lite")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.InDelta(t, 240.5, body["tts"]["avg_latency_ms"], 1e-9)
	assert.InDelta(t, 0.97, body["tts"]["success_rate"], 1e-9)
	assert.InDelta(t, 0.42, body["tts"]["cache_hit_rate"], 1e-9)
	assert.EqualValues(t, 120, body["tts"]["total_requests"])
	assert.EqualValues(t, 31, body["tts"]["cache_size"])

	assert.EqualValues(t, 18, body["interpellation"]["total_interpellations"])
	assert.EqualValues(t, 17, body["interpellation"]["successful_responses"])
	assert.InDelta(t, 840, body["interpellation"]["average_response_time_ms"], 1e-9)
	assert.EqualValues(t, 2, body["interpellation"]["queue_size"])
}

func TestMetricsLiteWithoutSources(t *testing.T) {
	srv := httptest.NewServer(NewHandler(StatsSources{}, nil, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics-lite")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body liteStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.TTS.TotalRequests)
	assert.Zero(t, body.Interpellation.QueueSize)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewHandler(StatsSources{}, nil, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPrometheusEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "studio_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(NewHandler(StatsSources{}, reg, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestManagerLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"

	mgr := NewManager(NewHandler(StatsSources{}, nil, zap.NewNop()), cfg, zap.NewNop())
	require.NoError(t, mgr.Start())
	require.True(t, mgr.IsRunning())
	require.Error(t, mgr.Start())

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + mgr.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, mgr.Shutdown(context.Background()))
	assert.False(t, mgr.IsRunning())
	// shutdown is idempotent
	require.NoError(t, mgr.Shutdown(context.Background()))
}
