package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runpod/vllm/pkg/config"
)

// otherModel replaces model labels once the cardinality limit is reached.
const otherModel = "other"

// Collector owns every Prometheus metric exported by the gateway and
// provides the recording methods used by handlers, the queue poller and
// the tokenizer cache.
//
// All Record* methods are no-ops when metrics are disabled, so callers never
// need to check the configuration themselves.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	streamMetrics  *StreamMetrics
	queueMetrics   *QueueMetrics
	cacheMetrics   *CacheMetrics

	// Clients choose the model label; rejected names are unbounded.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "vllm",
//		Subsystem: "gateway",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "vllm"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gateway"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Generation latencies (50ms - 2min)
		cfg.RequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	}
	if len(cfg.TokenCountBuckets) == 0 {
		cfg.TokenCountBuckets = []float64{16, 64, 256, 512, 1024, 2048, 4096, 8192}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(100),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.streamMetrics = NewStreamMetrics(cfg, registry)
	c.queueMetrics = NewQueueMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records one finished generation request.
//
// Parameters:
//   - endpoint: "chat" or "completion"
//   - model: requested model name
//   - status: "ok", "rejected", "error" or "disconnected"
//   - stream: whether the response was streamed live
//   - duration: total handler time
func (c *Collector) RecordRequest(endpoint, model, status string, stream bool, duration time.Duration) {
	if !c.Enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(model) {
		model = otherModel
	}
	c.requestMetrics.RecordRequest(endpoint, model, status, stream, duration)
}

// RecordTokens records prompt and completion token counts of a request.
func (c *Collector) RecordTokens(endpoint string, promptTokens, completionTokens int) {
	if !c.Enabled() {
		return
	}
	c.requestMetrics.RecordTokens(endpoint, promptTokens, completionTokens)
}

// RecordRejection records a request refused before submission, by error kind.
func (c *Collector) RecordRejection(endpoint, kind string) {
	if !c.Enabled() {
		return
	}
	c.requestMetrics.RecordRejection(endpoint, kind)
}

// RecordTimeToFirstEvent records the delay between submission and the
// first streamed event.
func (c *Collector) RecordTimeToFirstEvent(endpoint string, d time.Duration) {
	if !c.Enabled() {
		return
	}
	c.streamMetrics.RecordTimeToFirstEvent(endpoint, d)
}

// RecordStreamEvents adds n sent SSE events.
func (c *Collector) RecordStreamEvents(endpoint string, n int) {
	if !c.Enabled() {
		return
	}
	c.streamMetrics.RecordEvents(endpoint, n)
}

// RecordFinish counts one finished output index by finish reason.
func (c *Collector) RecordFinish(endpoint, reason string) {
	if !c.Enabled() {
		return
	}
	c.streamMetrics.RecordFinish(endpoint, reason)
}

// RecordAbort counts an engine abort by cause ("disconnect", "write_error",
// "engine_error").
func (c *Collector) RecordAbort(cause string) {
	if !c.Enabled() {
		return
	}
	c.streamMetrics.RecordAbort(cause)
}

// UpdateQueue publishes an engine backlog snapshot.
func (c *Collector) UpdateQueue(running, waiting, swapped []int, unfinishedGroups int, lastActivity time.Time) {
	if !c.Enabled() {
		return
	}
	c.queueMetrics.Update(running, waiting, swapped, unfinishedGroups, lastActivity)
}

// RecordQueuePollError counts a failed scheduler snapshot.
func (c *Collector) RecordQueuePollError() {
	if !c.Enabled() {
		return
	}
	c.queueMetrics.RecordPollError()
}

// RegisterCache exports the counters of a cache under name.
func (c *Collector) RegisterCache(name string, source CacheStatsSource) {
	if !c.Enabled() {
		return
	}
	c.cacheMetrics.Register(name, source)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Known values are
// always allowed; new ones only while under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
