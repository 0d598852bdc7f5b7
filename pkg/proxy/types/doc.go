// Package types defines the OpenAI-compatible request, response and error
// bodies served by the gateway.
//
// Request types:
//   - ChatCompletionRequest: body of POST /v1/chat/completions
//   - CompletionRequest: body of POST /v1/completions
//
// Both accept the engine extensions best_of, top_k, ignore_eos and
// use_beam_search. Flexible fields (stop, prompt, messages) decode from either
// a string or a list.
//
// Response types:
//   - ChatCompletionResponse / ChatCompletionStreamResponse
//   - CompletionResponse / CompletionStreamResponse
//   - LogProbs, UsageInfo
//   - ModelList, ModelCard, ModelPermission
//
// Errors are reported as a flat object:
//
//	{"object":"error","message":"...","type":"invalid_request_error","param":null,"code":null}
//
// APIError carries the error kind that selects the HTTP status.
package types
