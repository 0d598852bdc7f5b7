package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// SamplerAlways samples all traces.
	SamplerAlways = "always"

	// SamplerNever samples no traces.
	SamplerNever = "never"

	// SamplerRatio samples a fraction of root traces by trace ID.
	SamplerRatio = "ratio"

	// SamplerParentBased follows an incoming traceparent's decision and
	// samples root traces by ratio.
	SamplerParentBased = "parentbased"
)

// createSampler creates a sampler for strategy.
//
// The always, never and ratio strategies apply to every span regardless of
// the caller's sampling decision. parentbased honours the sampled flag of an
// extracted traceparent header so a gateway span joins the caller's trace
// exactly when the caller recorded it.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	switch strategy {
	case SamplerAlways:
		return sdktrace.AlwaysSample(), nil
	case SamplerNever:
		return sdktrace.NeverSample(), nil
	case SamplerRatio, SamplerParentBased:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		if strategy == SamplerRatio {
			return sdktrace.TraceIDRatioBased(ratio), nil
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio, parentbased)", strategy)
	}
}
