package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/runpod/vllm/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the default request body limit (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ParseChatCompletionRequest decodes and validates a chat completion body.
func ParseChatCompletionRequest(r *http.Request, maxBytes int64) (*types.ChatCompletionRequest, error) {
	var req types.ChatCompletionRequest
	if err := decodeBody(r, maxBytes, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &req, nil
}

// ParseCompletionRequest decodes and validates a text completion body.
func ParseCompletionRequest(r *http.Request, maxBytes int64) (*types.CompletionRequest, error) {
	var req types.CompletionRequest
	if err := decodeBody(r, maxBytes, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &req, nil
}

// decodeBody reads at most maxBytes of JSON into v. Malformed bodies are
// reported as invalid requests.
func decodeBody(r *http.Request, maxBytes int64, v any) error {
	if maxBytes <= 0 {
		maxBytes = MaxRequestBodySize
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return &types.APIError{
			Kind:    types.KindInvalidRequest,
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Param:   "body",
		}
	}
	if len(body) == 0 {
		return &types.APIError{Kind: types.KindInvalidRequest, Message: "request body is empty", Param: "body"}
	}

	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &types.APIError{
				Kind:    types.KindInvalidRequest,
				Message: fmt.Sprintf("invalid value for %s: expected %s", typeErr.Field, typeErr.Type),
				Param:   typeErr.Field,
			}
		}
		return &types.APIError{Kind: types.KindInvalidRequest, Message: fmt.Sprintf("invalid JSON: %v", err), Param: "body"}
	}
	return nil
}

func validationError(err error) error {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return &types.APIError{Kind: types.KindInvalidRequest, Message: verr.Message, Param: verr.Field}
	}
	return &types.APIError{Kind: types.KindInvalidRequest, Message: err.Error()}
}

// ExtractRequestID returns the client-supplied X-Request-ID header.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
