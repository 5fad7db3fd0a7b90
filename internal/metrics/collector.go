// Package metrics collects studio observability data: prometheus collectors
// for the synthesis and generation pipelines plus the lightweight JSON
// snapshot served on /metrics-lite.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records pipeline metrics. It satisfies the synthesis client's
// Metrics interface and additionally tracks interpellation outcomes for the
// lite snapshot.
type Collector struct {
	ttsRequests   *prometheus.CounterVec
	ttsLatency    *prometheus.HistogramVec
	ttsAttempts   prometheus.Histogram
	ttsCacheHits  prometheus.Counter
	ttsCacheMiss  prometheus.Counter
	ttsFallbacks  prometheus.Counter
	genRequests   *prometheus.CounterVec
	genLatency    prometheus.Histogram
	detectionTime prometheus.Histogram
	interpEvents  *prometheus.CounterVec
	interpTime    prometheus.Histogram
	queueSize     prometheus.Gauge

	mu            sync.Mutex
	interpTotal   int64
	interpOK      int64
	interpElapsed time.Duration
	queued        int

	logger *zap.Logger
}

// NewCollector registers the studio collectors on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.ttsRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Total number of synthesis requests",
		},
		[]string{"provider", "status"},
	)
	c.ttsLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_latency_seconds",
			Help:      "Total synthesis latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"provider"},
	)
	c.ttsAttempts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_attempts",
			Help:      "Attempts used per synthesis request",
			Buckets:   []float64{1, 2, 3, 4},
		},
	)
	c.ttsCacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_cache_hits_total",
			Help:      "Total number of audio cache hits",
		},
	)
	c.ttsCacheMiss = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_cache_misses_total",
			Help:      "Total number of audio cache misses",
		},
	)
	c.ttsFallbacks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_fallbacks_total",
			Help:      "Total number of fallback provider activations",
		},
	)
	c.genRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"status"},
	)
	c.genLatency = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_latency_seconds",
			Help:      "Text generation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8},
		},
	)
	c.detectionTime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpellation_detection_seconds",
			Help:      "Interpellation detection time in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)
	c.interpEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpellation_responses_total",
			Help:      "Total number of interpellation responses by outcome",
		},
		[]string{"status"},
	)
	c.interpTime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpellation_response_seconds",
			Help:      "Elapsed time from detection to delivered response",
			Buckets:   []float64{0.25, 0.5, 1, 1.5, 2, 3, 5},
		},
	)
	c.queueSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interpellation_queue_size",
			Help:      "Pending entries in the guaranteed response queue",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// ObserveSynthesis records one synthesis outcome.
func (c *Collector) ObserveSynthesis(provider string, total time.Duration, attempts int, success bool) {
	c.ttsRequests.WithLabelValues(provider, statusLabel(success)).Inc()
	c.ttsLatency.WithLabelValues(provider).Observe(total.Seconds())
	c.ttsAttempts.Observe(float64(attempts))
}

// ObserveCache records an audio cache lookup.
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.ttsCacheHits.Inc()
		return
	}
	c.ttsCacheMiss.Inc()
}

// ObserveFallback records a fallback provider activation.
func (c *Collector) ObserveFallback() {
	c.ttsFallbacks.Inc()
}

// ObserveGeneration records one text generator call.
func (c *Collector) ObserveGeneration(elapsed time.Duration, success bool) {
	c.genRequests.WithLabelValues(statusLabel(success)).Inc()
	c.genLatency.Observe(elapsed.Seconds())
}

// ObserveDetection records how long one detector scan took.
func (c *Collector) ObserveDetection(elapsed time.Duration) {
	c.detectionTime.Observe(elapsed.Seconds())
}

// ObserveInterpellation records a delivered (or failed) addressed response.
func (c *Collector) ObserveInterpellation(elapsed time.Duration, success bool) {
	c.interpEvents.WithLabelValues(statusLabel(success)).Inc()
	c.interpTime.Observe(elapsed.Seconds())

	c.mu.Lock()
	c.interpTotal++
	if success {
		c.interpOK++
	}
	c.interpElapsed += elapsed
	c.mu.Unlock()
}

// SetQueueSize mirrors the response queue depth.
func (c *Collector) SetQueueSize(n int) {
	c.queueSize.Set(float64(n))

	c.mu.Lock()
	c.queued = n
	c.mu.Unlock()
}

// InterpellationStats is the interpellation half of /metrics-lite.
type InterpellationStats struct {
	TotalInterpellations  int64   `json:"total_interpellations"`
	SuccessfulResponses   int64   `json:"successful_responses"`
	SuccessRate           float64 `json:"success_rate"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	QueueSize             int     `json:"queue_size"`
}

// InterpellationSnapshot returns the current lite counters.
func (c *Collector) InterpellationSnapshot() InterpellationStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := InterpellationStats{
		TotalInterpellations: c.interpTotal,
		SuccessfulResponses:  c.interpOK,
		QueueSize:            c.queued,
	}
	if c.interpTotal > 0 {
		stats.SuccessRate = float64(c.interpOK) / float64(c.interpTotal)
		stats.AverageResponseTimeMs = float64(c.interpElapsed.Milliseconds()) / float64(c.interpTotal)
	}
	return stats
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
