package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runpod/vllm/pkg/config"
)

// QueueMetrics publishes the engine backlog for autoscalers.
//
// Metrics:
//   - vllm_gateway_queue_sequence_groups{state}: sequence groups per state
//   - vllm_gateway_queue_sequences{state}: sequences per state
//   - vllm_gateway_queue_unfinished_sequence_groups
//   - vllm_gateway_queue_last_activity_timestamp_seconds
//   - vllm_gateway_queue_poll_errors_total
type QueueMetrics struct {
	groups       *prometheus.GaugeVec
	sequences    *prometheus.GaugeVec
	unfinished   prometheus.Gauge
	lastActivity prometheus.Gauge
	pollErrors   prometheus.Counter
}

// NewQueueMetrics creates and registers queue metrics with the provided registry.
func NewQueueMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *QueueMetrics {
	qm := &QueueMetrics{
		groups: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queue_sequence_groups",
				Help:      "Engine sequence groups by scheduler state",
			},
			[]string{"state"},
		),
		sequences: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queue_sequences",
				Help:      "Engine sequences by scheduler state",
			},
			[]string{"state"},
		),
		unfinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "queue_unfinished_sequence_groups",
			Help:      "Sequence groups that are running, waiting or swapped",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "queue_last_activity_timestamp_seconds",
			Help:      "Unix time of the engine scheduler's last logging pass",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "queue_poll_errors_total",
			Help:      "Failed scheduler snapshot requests",
		}),
	}

	registry.MustRegister(qm.groups, qm.sequences, qm.unfinished, qm.lastActivity, qm.pollErrors)
	return qm
}

// Update sets every gauge from one snapshot.
func (qm *QueueMetrics) Update(running, waiting, swapped []int, unfinishedGroups int, lastActivity time.Time) {
	for state, counts := range map[string][]int{"running": running, "waiting": waiting, "swapped": swapped} {
		qm.groups.WithLabelValues(state).Set(float64(len(counts)))
		qm.sequences.WithLabelValues(state).Set(float64(sum(counts)))
	}
	qm.unfinished.Set(float64(unfinishedGroups))
	if !lastActivity.IsZero() {
		qm.lastActivity.Set(float64(lastActivity.UnixNano()) / 1e9)
	}
}

// RecordPollError counts one failed poll.
func (qm *QueueMetrics) RecordPollError() {
	qm.pollErrors.Inc()
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
