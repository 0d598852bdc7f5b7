package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		Subsystem:              "gateway",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
		TokenCountBuckets:      []float64{16, 256, 2048},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)
	if collector.Registry() != registry {
		t.Error("collector registry not set correctly")
	}
	if !collector.Enabled() {
		t.Error("expected collector to be enabled")
	}

	defaults := NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	if defaults.config.Namespace != "vllm" || defaults.config.Subsystem != "gateway" {
		t.Errorf("unexpected defaults %+v", defaults.config)
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRequest("chat", "llama", "ok", true, 200*time.Millisecond)
	collector.RecordRequest("chat", "llama", "ok", true, 300*time.Millisecond)
	collector.RecordRequest("completion", "llama", "rejected", false, time.Millisecond)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("chat", "llama", "ok", "true")); got != 2 {
		t.Errorf("chat ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("completion", "llama", "rejected", "false")); got != 1 {
		t.Errorf("completion rejected = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(rm.requestDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_RecordTokens(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordTokens("completion", 10, 5)
	collector.RecordTokens("completion", 2, 0)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.tokensTotal.WithLabelValues("completion", "prompt")); got != 12 {
		t.Errorf("prompt tokens = %v", got)
	}
	if got := testutil.ToFloat64(rm.tokensTotal.WithLabelValues("completion", "completion")); got != 5 {
		t.Errorf("completion tokens = %v", got)
	}
}

func TestCollector_StreamMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordStreamEvents("chat", 7)
	collector.RecordFinish("chat", "stop")
	collector.RecordFinish("chat", "")
	collector.RecordAbort("disconnect")
	collector.RecordAbort("disconnect")
	collector.RecordTimeToFirstEvent("chat", 30*time.Millisecond)

	sm := collector.streamMetrics
	if got := testutil.ToFloat64(sm.eventsTotal.WithLabelValues("chat")); got != 7 {
		t.Errorf("events = %v", got)
	}
	if got := testutil.ToFloat64(sm.finishTotal.WithLabelValues("chat", "none")); got != 1 {
		t.Errorf("unset finish reason = %v", got)
	}
	if got := testutil.ToFloat64(sm.abortsTotal.WithLabelValues("disconnect")); got != 2 {
		t.Errorf("aborts = %v", got)
	}
}

func TestCollector_UpdateQueue(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	last := time.Unix(1700000000, 0)

	collector.UpdateQueue([]int{1, 4}, []int{2}, nil, 3, last)

	qm := collector.queueMetrics
	tests := []struct {
		gauge prometheus.Collector
		want  float64
	}{
		{qm.groups.WithLabelValues("running"), 2},
		{qm.sequences.WithLabelValues("running"), 5},
		{qm.sequences.WithLabelValues("waiting"), 2},
		{qm.groups.WithLabelValues("swapped"), 0},
		{qm.unfinished, 3},
		{qm.lastActivity, 1700000000},
	}
	for i, tt := range tests {
		if got := testutil.ToFloat64(tt.gauge); got != tt.want {
			t.Errorf("case %d: got %v, want %v", i, got, tt.want)
		}
	}

	collector.RecordQueuePollError()
	if got := testutil.ToFloat64(qm.pollErrors); got != 1 {
		t.Errorf("poll errors = %v", got)
	}
}

type staticStats tokenizer.CacheStats

func (s staticStats) Stats() tokenizer.CacheStats { return tokenizer.CacheStats(s) }

func TestCollector_RegisterCache(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RegisterCache("tokenizer", staticStats{Hits: 9, Misses: 3, Entries: 2})

	expected := `
# HELP test_gateway_cache_hits_total Total number of cache hits
# TYPE test_gateway_cache_hits_total counter
test_gateway_cache_hits_total{cache="tokenizer"} 9
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "test_gateway_cache_hits_total"); err != nil {
		t.Error(err)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordRequest("chat", "m", "ok", false, time.Second)
	collector.RecordAbort("disconnect")

	if got := testutil.ToFloat64(collector.streamMetrics.abortsTotal.WithLabelValues("disconnect")); got != 0 {
		t.Errorf("disabled collector recorded %v aborts", got)
	}

	var nilCollector *Collector
	nilCollector.RecordTokens("chat", 1, 1)
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(3)
	for i := 0; i < 3; i++ {
		if !cl.Allow(fmt.Sprintf("m%d", i)) {
			t.Fatalf("value %d should be allowed", i)
		}
	}
	if cl.Allow("m3") {
		t.Error("fourth value should be refused")
	}
	if !cl.Allow("m0") {
		t.Error("known value should stay allowed")
	}
	if cl.Count() != 3 {
		t.Errorf("count = %d", cl.Count())
	}
}

func TestCollector_UnknownModelsCollapse(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.RecordRequest("chat", "served", "ok", false, time.Millisecond)
	collector.RecordRequest("chat", "random-1", "rejected", false, time.Millisecond)

	if got := testutil.ToFloat64(collector.requestMetrics.requestsTotal.WithLabelValues("chat", otherModel, "rejected", "false")); got != 1 {
		t.Errorf("other = %v", got)
	}
}

func TestHandler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest("chat", "m", "ok", false, time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_gateway_requests_total") {
		t.Error("expected requests_total in exposition")
	}
}
