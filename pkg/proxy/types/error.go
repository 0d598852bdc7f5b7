package types

import (
	"fmt"
	"net/http"
)

// ErrorResponse is the error body returned for every failed request:
//
//	{"object":"error","message":"...","type":"invalid_request_error","param":null,"code":null}
type ErrorResponse struct {
	// Object is always "error".
	Object string `json:"object"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Param is the offending request parameter, if known.
	Param *string `json:"param"`

	// Code is a machine-readable error code, if any.
	Code *string `json:"code"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest covers every client-side error (400, 404).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeServerError indicates an internal or engine failure (500).
	ErrorTypeServerError = "server_error"
)

// ErrorKind classifies API errors.
type ErrorKind int

const (
	// KindInvalidRequest is a malformed body, unsupported field, unknown
	// role or bad sampling value.
	KindInvalidRequest ErrorKind = iota

	// KindModelNotFound is a request for a model other than the served one.
	KindModelNotFound

	// KindContextLengthExceeded is a prompt plus max_tokens beyond the
	// context window.
	KindContextLengthExceeded

	// KindClientDisconnected is reported for non-streaming requests whose
	// client went away before the result was ready.
	KindClientDisconnected

	// KindServer is an engine or internal failure.
	KindServer
)

// String returns the kind name used in logs and audit records.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindModelNotFound:
		return "model_not_found"
	case KindContextLengthExceeded:
		return "context_length_exceeded"
	case KindClientDisconnected:
		return "client_disconnected"
	case KindServer:
		return "server_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is an error that is reported to the client verbatim.
type APIError struct {
	Kind    ErrorKind
	Message string

	// Param names the offending request field, if known.
	Param string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status for the error kind.
func (e *APIError) StatusCode() int {
	switch e.Kind {
	case KindModelNotFound:
		return http.StatusNotFound
	case KindServer:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Response converts the error to its wire form.
func (e *APIError) Response() *ErrorResponse {
	errType := ErrorTypeInvalidRequest
	if e.Kind == KindServer {
		errType = ErrorTypeServerError
	}
	return &ErrorResponse{
		Object:  ObjectError,
		Message: e.Message,
		Type:    errType,
		Param:   StringPtr(e.Param),
	}
}

// InvalidRequest returns a KindInvalidRequest error.
func InvalidRequest(format string, args ...any) *APIError {
	return &APIError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// ModelNotFound returns the error for an unknown model name.
func ModelNotFound(model string) *APIError {
	return &APIError{
		Kind:    KindModelNotFound,
		Message: fmt.Sprintf("The model `%s` does not exist.", model),
		Param:   "model",
	}
}

// ClientDisconnected returns the error reported when the client went away.
func ClientDisconnected() *APIError {
	return &APIError{Kind: KindClientDisconnected, Message: "Client disconnected"}
}

// ServerError returns a KindServer error.
func ServerError(message string) *APIError {
	return &APIError{Kind: KindServer, Message: message}
}
