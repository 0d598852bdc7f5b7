package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runpod/vllm/pkg/config"
)

// StreamMetrics tracks output delivery and cancellation.
//
// Metrics:
//   - vllm_gateway_time_to_first_event_seconds: submission to first SSE event
//   - vllm_gateway_stream_events_total: SSE events sent
//   - vllm_gateway_finish_total: finished output indices by reason
//   - vllm_gateway_engine_aborts_total: aborts sent to the engine by cause
type StreamMetrics struct {
	timeToFirstEvent *prometheus.HistogramVec
	eventsTotal      *prometheus.CounterVec
	finishTotal      *prometheus.CounterVec
	abortsTotal      *prometheus.CounterVec
}

// NewStreamMetrics creates and registers stream metrics with the provided registry.
func NewStreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StreamMetrics {
	sm := &StreamMetrics{
		timeToFirstEvent: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "time_to_first_event_seconds",
				Help:      "Time from engine submission to the first streamed event",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_events_total",
				Help:      "Total number of server-sent events written",
			},
			[]string{"endpoint"},
		),

		finishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "finish_total",
				Help:      "Finished output sequences by finish reason",
			},
			[]string{"endpoint", "reason"},
		),

		abortsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_aborts_total",
				Help:      "Generation requests aborted in the engine",
			},
			[]string{"cause"},
		),
	}

	registry.MustRegister(
		sm.timeToFirstEvent,
		sm.eventsTotal,
		sm.finishTotal,
		sm.abortsTotal,
	)

	return sm
}

// RecordTimeToFirstEvent observes the first-event latency.
func (sm *StreamMetrics) RecordTimeToFirstEvent(endpoint string, d time.Duration) {
	sm.timeToFirstEvent.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordEvents adds n events.
func (sm *StreamMetrics) RecordEvents(endpoint string, n int) {
	if n > 0 {
		sm.eventsTotal.WithLabelValues(endpoint).Add(float64(n))
	}
}

// RecordFinish counts one finished index.
func (sm *StreamMetrics) RecordFinish(endpoint, reason string) {
	if reason == "" {
		reason = "none"
	}
	sm.finishTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordAbort counts one abort.
func (sm *StreamMetrics) RecordAbort(cause string) {
	sm.abortsTotal.WithLabelValues(cause).Inc()
}
