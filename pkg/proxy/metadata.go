package proxy

import (
	"net/http"
	"time"

	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/sampling"
)

// Endpoint names used in logs, metrics and audit records.
const (
	EndpointChat       = "chat"
	EndpointCompletion = "completion"
)

// RequestMetadata describes an incoming generation request.
// It is used for logging, tracing, and the audit log.
type RequestMetadata struct {
	// RequestID is the engine request id ("cmpl-...").
	RequestID string

	// Endpoint is EndpointChat or EndpointCompletion.
	Endpoint string

	// Model is the requested model name.
	Model string

	// Stream indicates whether streaming was requested.
	Stream bool

	// N is the number of requested output sequences.
	N int

	// MaxTokens is the effective completion budget.
	MaxTokens int

	// User is the optional end-user identifier from the body.
	User string

	Method     string
	Path       string
	UserAgent  string
	RemoteAddr string

	// Timestamp is when the request was received.
	Timestamp time.Time
}

// ResponseMetadata describes how a generation request ended.
type ResponseMetadata struct {
	RequestID string

	// StatusCode is the HTTP status sent to the client.
	StatusCode int

	// Latency is the total request processing time.
	Latency time.Duration

	// TimeToFirstEvent is the delay before the first streamed event, if any.
	TimeToFirstEvent time.Duration

	PromptTokens     int
	CompletionTokens int

	// FinishReasons holds one entry per output index.
	FinishReasons []string

	// Streamed is true when the response was sent as live SSE.
	Streamed bool

	// Disconnected is true when the client went away before the end.
	Disconnected bool

	// Error is the error that ended the request, if any.
	Error error

	Timestamp time.Time
}

// ExtractChatMetadata builds request metadata for a chat completion.
func ExtractChatMetadata(r *http.Request, req *types.ChatCompletionRequest) *RequestMetadata {
	m := baseMetadata(r, EndpointChat, req.Model, req.Stream, req.User)
	m.N = sampling.N(req.N)
	m.MaxTokens = sampling.MaxTokens(req.MaxTokens)
	return m
}

// ExtractCompletionMetadata builds request metadata for a text completion.
func ExtractCompletionMetadata(r *http.Request, req *types.CompletionRequest) *RequestMetadata {
	m := baseMetadata(r, EndpointCompletion, req.Model, req.Stream, req.User)
	m.N = sampling.N(req.N)
	m.MaxTokens = sampling.MaxTokens(req.MaxTokens)
	return m
}

func baseMetadata(r *http.Request, endpoint, model string, stream bool, user string) *RequestMetadata {
	return &RequestMetadata{
		Endpoint:   endpoint,
		Model:      model,
		Stream:     stream,
		User:       user,
		Method:     r.Method,
		Path:       r.URL.Path,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Timestamp:  time.Now(),
	}
}

// ExtractErrorMetadata creates response metadata for a failed request.
func ExtractErrorMetadata(requestID string, apiErr *types.APIError, err error, latency time.Duration) *ResponseMetadata {
	return &ResponseMetadata{
		RequestID:    requestID,
		StatusCode:   apiErr.StatusCode(),
		Latency:      latency,
		Disconnected: apiErr.Kind == types.KindClientDisconnected,
		Error:        err,
		Timestamp:    time.Now(),
	}
}

// TotalTokens returns prompt plus completion tokens.
func (m *ResponseMetadata) TotalTokens() int {
	return m.PromptTokens + m.CompletionTokens
}

// IsSuccess returns true if the response was successful (2xx status code).
func (m *ResponseMetadata) IsSuccess() bool {
	return m.StatusCode >= 200 && m.StatusCode < 300 && m.Error == nil
}

// Status returns a short outcome label for metrics.
func (m *ResponseMetadata) Status() string {
	switch {
	case m.Disconnected:
		return "disconnected"
	case m.IsSuccess():
		return "ok"
	case m.StatusCode >= 400 && m.StatusCode < 500:
		return "rejected"
	default:
		return "error"
	}
}
