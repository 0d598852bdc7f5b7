package engine

import (
	"errors"
	"fmt"
)

// ErrStreamClosed is returned when outputs are requested from a request whose
// stream has already been consumed or closed.
var ErrStreamClosed = errors.New("engine output stream closed")

// Error is a failure reported by, or while talking to, the engine.
type Error struct {
	// Op is the engine operation ("generate", "abort", "model_config", ...).
	Op string

	// StatusCode is the HTTP status returned by the engine (0 if not applicable).
	StatusCode int

	// Message is the error message.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("engine %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("engine %s failed: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("engine %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// ParseError represents a malformed engine response.
type ParseError struct {
	// Op is the engine operation whose response failed to parse.
	Op string

	// Raw is the offending payload, truncated for logging.
	Raw string

	// Cause is the underlying decode error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("engine %s response parse error: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
