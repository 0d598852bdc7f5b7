package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// CacheStatsSource is a cache that reports cumulative counters.
type CacheStatsSource interface {
	Stats() tokenizer.CacheStats
}

// CacheMetrics exports cache counters read at scrape time.
//
// Metrics:
//   - vllm_gateway_cache_hits_total{cache}
//   - vllm_gateway_cache_misses_total{cache}
//   - vllm_gateway_cache_shared_total{cache}: misses served by an in-flight load
//   - vllm_gateway_cache_entries{cache}
type CacheMetrics struct {
	cfg      *config.MetricsConfig
	registry *prometheus.Registry
}

// NewCacheMetrics returns cache metrics bound to registry. Nothing is
// registered until a cache is added with Register.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	return &CacheMetrics{cfg: cfg, registry: registry}
}

// Register adds the func-backed series for one cache.
func (cm *CacheMetrics) Register(name string, source CacheStatsSource) {
	labels := prometheus.Labels{"cache": name}
	opts := func(metric, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace:   cm.cfg.Namespace,
			Subsystem:   cm.cfg.Subsystem,
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		}
	}

	cm.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("cache_hits_total", "Total number of cache hits")),
			func() float64 { return float64(source.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("cache_misses_total", "Total number of cache misses")),
			func() float64 { return float64(source.Stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("cache_shared_total", "Misses answered by a concurrent load of the same key")),
			func() float64 { return float64(source.Stats().Shared) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("cache_entries", "Current number of entries in cache")),
			func() float64 { return float64(source.Stats().Entries) }),
	)
}
