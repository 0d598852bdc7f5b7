package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runpod/vllm/pkg/config"
)

// RequestMetrics tracks generation requests.
//
// Metrics:
//   - vllm_gateway_requests_total: requests by endpoint, model, status, stream
//   - vllm_gateway_request_duration_seconds: handler duration histogram
//   - vllm_gateway_tokens_total: prompt and completion tokens
//   - vllm_gateway_prompt_tokens: prompt length histogram
//   - vllm_gateway_rejections_total: requests refused before submission
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	promptTokens    *prometheus.HistogramVec
	rejectionsTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of generation requests",
			},
			[]string{"endpoint", "model", "status", "stream"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of generation requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"endpoint", "stream"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of prompt and completion tokens",
			},
			[]string{"endpoint", "type"},
		),

		promptTokens: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "prompt_tokens",
				Help:      "Prompt length in tokens",
				Buckets:   cfg.TokenCountBuckets,
			},
			[]string{"endpoint"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_total",
				Help:      "Requests refused before submission to the engine",
			},
			[]string{"endpoint", "kind"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
		rm.promptTokens,
		rm.rejectionsTotal,
	)

	return rm
}

// RecordRequest records one finished request.
func (rm *RequestMetrics) RecordRequest(endpoint, model, status string, stream bool, duration time.Duration) {
	s := strconv.FormatBool(stream)
	rm.requestsTotal.WithLabelValues(endpoint, model, status, s).Inc()
	rm.requestDuration.WithLabelValues(endpoint, s).Observe(duration.Seconds())
}

// RecordTokens records token counts separately for prompt and completion.
func (rm *RequestMetrics) RecordTokens(endpoint string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		rm.tokensTotal.WithLabelValues(endpoint, "prompt").Add(float64(promptTokens))
		rm.promptTokens.WithLabelValues(endpoint).Observe(float64(promptTokens))
	}
	if completionTokens > 0 {
		rm.tokensTotal.WithLabelValues(endpoint, "completion").Add(float64(completionTokens))
	}
}

// RecordRejection counts a refused request.
func (rm *RequestMetrics) RecordRejection(endpoint, kind string) {
	rm.rejectionsTotal.WithLabelValues(endpoint, kind).Inc()
}
