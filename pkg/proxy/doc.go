// Package proxy holds the HTTP plumbing shared by the gateway handlers.
//
// It decodes and validates OpenAI request bodies, writes JSON and
// server-sent event responses, maps internal errors to API errors and
// extracts request/response metadata for logging and the audit log.
//
// # Request Parsing
//
//	req, err := proxy.ParseChatCompletionRequest(r, proxy.MaxRequestBodySize)
//	if err != nil {
//	    proxy.WriteErrorResponse(w, proxy.HandleError(err))
//	    return
//	}
//
// Bodies larger than the limit, empty bodies, malformed JSON and missing
// required fields are all reported as invalid_request_error with status 400.
//
// # Streaming
//
// SSEWriter emits one "data: <json>\n\n" frame per event and flushes after
// every frame. WriteDone sends the "data: [DONE]" terminator. Headers are
// sent lazily with the first frame so that an error detected before any
// output can still be returned as a JSON error body.
//
// # Error Mapping
//
// HandleError converts errors returned by the request pipeline:
//
//   - *types.APIError: returned unchanged
//   - *length.ExceededError: context_length_exceeded (400)
//   - *prompt.UnknownRoleError: invalid request (400)
//   - session.ErrClientDisconnected: "Client disconnected" (400)
//   - anything else: server_error (500) with a generic message
package proxy
