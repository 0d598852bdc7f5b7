// Package sampling converts OpenAI request bodies into engine sampling
// parameters.
//
// Protocol defaults are applied to omitted fields, unsupported fields are
// rejected rather than dropped, and the result is checked against the engine's
// accepted ranges. Every returned error is a *types.APIError of kind
// KindInvalidRequest carrying the message shown to the client.
package sampling

import (
	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/proxy/types"
)

// Protocol defaults for omitted request fields.
const (
	DefaultChatTemperature       = 0.7
	DefaultCompletionTemperature = 1.0
	DefaultTopP                  = 1.0
	DefaultN                     = 1
	DefaultMaxTokens             = 16
	DefaultTopK                  = -1

	// DefaultMaxN is the n and best_of limit used when none is configured.
	DefaultMaxN = 128
)

// CheckChat rejects chat request fields the engine cannot honor. It runs
// before prompt assembly and the length check.
func CheckChat(req *types.ChatCompletionRequest) error {
	if req.LogitBias != nil {
		return types.InvalidRequest("logit_bias is not currently supported")
	}
	return nil
}

// FromChat builds sampling parameters for a chat completion request. n and
// best_of may not exceed maxN.
func FromChat(req *types.ChatCompletionRequest, maxN int) (engine.SamplingParams, error) {
	if err := CheckChat(req); err != nil {
		return engine.SamplingParams{}, err
	}

	params := engine.SamplingParams{
		N:                intOr(req.N, DefaultN),
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Temperature:      floatOr(req.Temperature, DefaultChatTemperature),
		TopP:             floatOr(req.TopP, DefaultTopP),
		TopK:             intOr(req.TopK, DefaultTopK),
		UseBeamSearch:    req.UseBeamSearch,
		Stop:             req.Stop,
		IgnoreEOS:        req.IgnoreEOS,
		MaxTokens:        intOr(req.MaxTokens, DefaultMaxTokens),
	}
	params.BestOf = intOr(req.BestOf, params.N)

	if err := verify(params, maxN); err != nil {
		return engine.SamplingParams{}, err
	}
	return params, nil
}

// FromCompletion builds sampling parameters for a text completion request and
// returns the single prompt it carries. n and best_of may not exceed maxN.
func FromCompletion(req *types.CompletionRequest, maxN int) (engine.SamplingParams, string, error) {
	if req.Echo {
		return engine.SamplingParams{}, "", types.InvalidRequest("echo is not currently supported")
	}
	if req.Suffix != nil {
		return engine.SamplingParams{}, "", types.InvalidRequest("suffix is not currently supported")
	}
	if req.LogitBias != nil {
		return engine.SamplingParams{}, "", types.InvalidRequest("logit_bias is not currently supported")
	}

	prompt, err := singlePrompt(req.Prompt)
	if err != nil {
		return engine.SamplingParams{}, "", err
	}

	params := engine.SamplingParams{
		N:                intOr(req.N, DefaultN),
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Temperature:      floatOr(req.Temperature, DefaultCompletionTemperature),
		TopP:             floatOr(req.TopP, DefaultTopP),
		TopK:             intOr(req.TopK, DefaultTopK),
		UseBeamSearch:    req.UseBeamSearch,
		Stop:             req.Stop,
		IgnoreEOS:        req.IgnoreEOS,
		MaxTokens:        intOr(req.MaxTokens, DefaultMaxTokens),
		Logprobs:         req.Logprobs,
	}
	params.BestOf = intOr(req.BestOf, params.N)

	if err := verify(params, maxN); err != nil {
		return engine.SamplingParams{}, "", err
	}
	return params, prompt, nil
}

func verify(params engine.SamplingParams, maxN int) error {
	switch {
	case params.N > maxN:
		return types.InvalidRequest("n must be at most %d, got %d.", maxN, params.N)
	case params.BestOf > maxN:
		return types.InvalidRequest("best_of must be at most %d, got %d.", maxN, params.BestOf)
	}
	if err := params.Verify(); err != nil {
		return types.InvalidRequest("%s", err.Error())
	}
	return nil
}

func singlePrompt(p types.PromptInput) (string, error) {
	if !p.IsList {
		if len(p.Values) == 0 {
			return "", nil
		}
		return p.Values[0], nil
	}
	switch len(p.Values) {
	case 0:
		return "", types.InvalidRequest("please provide at least one prompt")
	case 1:
		return p.Values[0], nil
	default:
		return "", types.InvalidRequest("multiple prompts in a batch is not currently supported")
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// N returns the requested n or its default.
func N(v *int) int {
	return intOr(v, DefaultN)
}

// MaxTokens returns the requested max_tokens or its default.
func MaxTokens(v *int) int {
	return intOr(v, DefaultMaxTokens)
}
