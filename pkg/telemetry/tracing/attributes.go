package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Gateway-specific keys live under the "vllm." namespace.
const (
	AttrEndpoint     = "vllm.endpoint"
	AttrModel        = "vllm.model"
	AttrRequestID    = "vllm.request_id"
	AttrCompletionID = "vllm.completion_id"
	AttrUser         = "vllm.user"

	AttrN          = "vllm.sampling.n"
	AttrBestOf     = "vllm.sampling.best_of"
	AttrMaxTokens  = "vllm.sampling.max_tokens"
	AttrBeam       = "vllm.sampling.use_beam_search"
	AttrStream     = "vllm.stream"
	AttrFakeStream = "vllm.stream.fake"

	AttrTokensPrompt     = "vllm.tokens.prompt"
	AttrTokensCompletion = "vllm.tokens.completion"
	AttrTokensTotal      = "vllm.tokens.total"

	AttrFinishReasons = "vllm.finish_reasons"
	AttrStreamEvents  = "vllm.stream.events"
	AttrErrorKind     = "vllm.error.kind"
)

// Span event names.
const (
	EventSubmitted   = "engine.submitted"
	EventFirstOutput = "engine.first_output"
	EventAborted     = "engine.aborted"
	EventClientGone  = "client.disconnected"
)

// SetRequestAttributes records the identity of a request on span.
func SetRequestAttributes(span trace.Span, endpoint, model, requestID, completionID string) {
	span.SetAttributes(
		attribute.String(AttrEndpoint, endpoint),
		attribute.String(AttrModel, model),
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrCompletionID, completionID),
	)
}

// SetSamplingAttributes records the effective sampling shape of a request.
func SetSamplingAttributes(span trace.Span, n, bestOf, maxTokens int, beam, stream bool) {
	span.SetAttributes(
		attribute.Int(AttrN, n),
		attribute.Int(AttrBestOf, bestOf),
		attribute.Int(AttrMaxTokens, maxTokens),
		attribute.Bool(AttrBeam, beam),
		attribute.Bool(AttrStream, stream),
	)
}

// SetTokenAttributes records token usage.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
		attribute.Int(AttrTokensTotal, promptTokens+completionTokens),
	)
}

// SetFinishAttributes records the finish reason of every output index.
func SetFinishAttributes(span trace.Span, reasons []string) {
	span.SetAttributes(attribute.StringSlice(AttrFinishReasons, reasons))
}

// AddEvent adds a named event to span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
