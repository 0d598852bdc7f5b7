// Package metrics provides Prometheus metrics for the gateway.
//
// # Metrics Categories
//
//   - Request Metrics: request count by status, duration, prompt and completion tokens, rejections
//   - Stream Metrics: time to first event, events sent, finish reasons, engine aborts
//   - Queue Metrics: engine backlog gauges fed by the queue poller
//   - Cache Metrics: token-count cache hits, misses and size, read at scrape time
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordRequest("chat", "llama-2-7b", "ok", true, time.Second)
//	collector.RecordTokens("chat", 42, 16)
//	collector.RegisterCache("tokenizer", cachedTokenizer)
//
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Clients pick the model label, and requests for unknown models are still
// counted. Once 100 distinct model names were seen, new ones are recorded
// as "other".
package metrics
