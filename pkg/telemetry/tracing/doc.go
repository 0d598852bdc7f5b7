// Package tracing provides OpenTelemetry distributed tracing for the gateway.
//
// # Overview
//
// Each completion request produces one server span covering parsing, prompt
// assembly, engine submission and response delivery. Spans are exported over
// OTLP gRPC. When tracing is disabled a noop tracer is used.
//
// # Trace Context Propagation
//
// HTTPMiddleware extracts W3C Trace Context (https://www.w3.org/TR/trace-context/)
// from incoming requests so gateway spans join the caller's trace:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling Strategies
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample a fraction of traces by trace ID
//   - parentbased: follow the caller's decision, ratio for root traces
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(r.Context(), "gateway.chat")
//	defer span.End()
//	tracing.SetRequestAttributes(span, "chat", model, requestID, completionID)
//
// # Span Layout
//
//	gateway.chat
//	├── event engine.submitted
//	├── event engine.first_output
//	└── event engine.aborted (client disconnect only)
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: parentbased
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    service_name: vllm-gateway
//	    otlp:
//	      insecure: true
//	      timeout: 10s
package tracing
