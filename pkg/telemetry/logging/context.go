package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for the HTTP request id (X-Request-ID).
	RequestIDKey contextKey = "request_id"

	// CompletionIDKey is the context key for the engine request id ("cmpl-...").
	CompletionIDKey contextKey = "completion_id"

	// EndpointKey is the context key for the API endpoint name.
	EndpointKey contextKey = "endpoint"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithCompletionID adds the engine request id to the context.
func WithCompletionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CompletionIDKey, id)
}

// GetCompletionID retrieves the engine request id from the context.
func GetCompletionID(ctx context.Context) string {
	return stringValue(ctx, CompletionIDKey)
}

// WithEndpoint adds the endpoint name to the context.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, EndpointKey, endpoint)
}

// GetEndpoint retrieves the endpoint name from the context.
func GetEndpoint(ctx context.Context) string {
	return stringValue(ctx, EndpointKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the log fields carried by ctx, including the trace
// and span ids of an active OpenTelemetry span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if v := GetCompletionID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(CompletionIDKey), v))
	}
	if v := GetEndpoint(ctx); v != "" {
		attrs = append(attrs, slog.String(string(EndpointKey), v))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
