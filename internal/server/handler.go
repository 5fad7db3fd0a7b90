package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/internal/metrics"
	"github.com/eloquence-ai/studio/tts"
)

// SynthesisStats is the synthesis pipeline's rolling counters.
type SynthesisStats interface {
	GetStats() tts.Stats
}

// InterpellationStats is the guaranteed-response counters.
type InterpellationStats interface {
	InterpellationSnapshot() metrics.InterpellationStats
}

// StatsSources feeds the lightweight stats endpoint. Nil fields report
// zero values.
type StatsSources struct {
	TTS             SynthesisStats
	Interpellations InterpellationStats
}

type liteStats struct {
	TTS            tts.Stats                   `json:"tts"`
	Interpellation metrics.InterpellationStats `json:"interpellation"`
}

// NewHandler routes the studio's HTTP endpoints:
//
//	GET /health        liveness probe
//	GET /metrics-lite  compact JSON stats for the app frontend
//	GET /metrics       Prometheus scrape target (when gatherer is set)
func NewHandler(src StatsSources, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	log := logger.With(zap.String("component", "http_handler"))
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, log, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/metrics-lite", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var out liteStats
		if src.TTS != nil {
			out.TTS = src.TTS.GetStats()
		}
		if src.Interpellations != nil {
			out.Interpellation = src.Interpellations.InterpellationSnapshot()
		}
		writeJSON(w, log, out)
	})

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("write response", zap.Error(err))
	}
}
