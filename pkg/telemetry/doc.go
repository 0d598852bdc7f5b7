// Package telemetry groups the observability packages of the gateway.
//
// # Components
//
//   - logging: slog setup, request-scoped fields and secret redaction
//   - metrics: Prometheus collectors for requests, streams, queue and caches
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes backed by engine checks
//
// # Usage
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//
// Each subpackage is configured from its own section of telemetry in the
// gateway configuration and can be disabled independently.
package telemetry
