// Package handlers provides the HTTP handlers of the gateway.
//
// # Handler Types
//
// Generation handlers share one Gateway:
//   - ChatHandler: POST /v1/chat/completions
//   - CompletionHandler: POST /v1/completions
//
// Informational handlers:
//   - ModelsHandler: GET /v1/models
//   - QueueHandler: GET /queue
//
// # Request Flow
//
// Each generation request follows the same pipeline:
//
//  1. Parse and validate the JSON body
//  2. Reject any model other than the served one (404)
//  3. Build the prompt: chat template for message lists, verbatim otherwise
//  4. Check prompt plus max_tokens against the context window
//  5. Build sampling parameters, rejecting unsupported fields
//  6. Submit to the engine under a fresh "cmpl-" id
//  7. Stream SSE deltas, or drain the result and send one JSON body
//
// Completions that sample more sequences than they return (best_of > n) or
// use beam search are never streamed live. When such a request asks for a
// stream, the aggregated response is sent as one SSE event followed by
// data: [DONE].
//
// # Cancellation
//
// The request context ends when the client disconnects. Whatever stage the
// request is in, the engine request is aborted exactly once; a request that
// finished normally is not aborted.
//
// # Error Handling
//
// Errors are written in the flat OpenAI format:
//
//	{
//	  "object": "error",
//	  "message": "The model `gpt-4` does not exist.",
//	  "type": "invalid_request_error",
//	  "param": null,
//	  "code": null
//	}
//
// Once a stream has started, errors end the stream instead.
//
// # Observability
//
// Every generation request produces one span, one log line, one set of
// Prometheus samples and, when configured, one audit record.
package handlers
