// Package metrics provides the Prometheus metrics collector for
// searchcore (SPEC_FULL.md §6.5): HTTP traffic, pipeline stage timing,
// LLM call outcomes, ranking duration, socket publish outcomes and dedup
// decisions. Grounded on the teacher's own internal/metrics.Collector —
// same promauto-registered-CounterVec/HistogramVec shape — narrowed to
// this service's domain; the teacher's Agent/DB dimensions have no
// equivalent here and are dropped rather than left unused (see
// DESIGN.md).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds every Prometheus vector this service records against.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	pipelineStageDuration *prometheus.HistogramVec

	llmRequestsTotal *prometheus.CounterVec

	rankingDuration *prometheus.HistogramVec

	wsPublishTotal *prometheus.CounterVec

	dedupDecisionsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector builds and registers every metric under namespace (spec
// §6.5 names them with the "searchcore_" prefix).
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests, by method/path/status class.",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Search pipeline stage duration in seconds (spec §4.6 gate/intent/baseFilters/routeMapping/providerCall/cuisineEnforcement/rankingProfile/assistantMessage).",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"stage"},
	)

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of model-provider calls, by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)

	c.rankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Candidate ranking duration in seconds, by profile mode.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"mode"},
	)

	c.wsPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_publish_total",
			Help:      "Total number of subscription-registry fan-out sends, by outcome (sent/failed).",
		},
		[]string{"result"},
	)

	c.dedupDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_decisions_total",
			Help:      "Total number of submit-time dedup decisions (spec §4.9), by decision.",
		},
		[]string{"decision"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one completed HTTP request (C14).
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPipelineStage records one pipeline stage's wall-clock duration
// (C12, spec §4.6).
func (c *Collector) RecordPipelineStage(stage string, duration time.Duration) {
	if c == nil {
		return
	}
	c.pipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLLMRequest records one model-provider call's outcome (C3, spec §4.1).
func (c *Collector) RecordLLMRequest(purpose, outcome string) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(purpose, outcome).Inc()
}

// RecordRankingDuration records one ranking pass's duration (C11).
func (c *Collector) RecordRankingDuration(mode string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rankingDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordWSPublish records one subscription-registry send outcome (C7+C8,
// spec §4.10 "copy-then-send"). result is "sent" or "failed".
func (c *Collector) RecordWSPublish(result string) {
	if c == nil {
		return
	}
	c.wsPublishTotal.WithLabelValues(result).Inc()
}

// RecordDedupDecision records one submit-time dedup outcome (C13, spec §4.9).
func (c *Collector) RecordDedupDecision(decision string) {
	if c == nil {
		return
	}
	c.dedupDecisionsTotal.WithLabelValues(decision).Inc()
}

// statusClass buckets an HTTP status into its class, matching the
// teacher's own convention for this label.
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
