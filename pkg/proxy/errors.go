package proxy

import (
	"context"
	"errors"

	"github.com/runpod/vllm/pkg/length"
	"github.com/runpod/vllm/pkg/prompt"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/session"
)

// internalErrorMessage is shown for failures whose details stay in the logs.
const internalErrorMessage = "An internal error occurred while generating the response."

// HandleError maps an error from the request path to the API error shown
// to the client. Client-caused errors keep their message verbatim; engine
// and internal failures are reported as a generic server error.
func HandleError(err error) *types.APIError {
	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var exceeded *length.ExceededError
	if errors.As(err, &exceeded) {
		return &types.APIError{Kind: types.KindContextLengthExceeded, Message: exceeded.Error(), Param: "max_tokens"}
	}

	var roleErr *prompt.UnknownRoleError
	if errors.As(err, &roleErr) {
		return &types.APIError{Kind: types.KindInvalidRequest, Message: roleErr.Error(), Param: "messages"}
	}

	if errors.Is(err, session.ErrClientDisconnected) || errors.Is(err, context.Canceled) {
		return types.ClientDisconnected()
	}

	return types.ServerError(internalErrorMessage)
}
