package engine

import (
	"errors"
	"fmt"
	"math"
)

// samplingEps is the temperature below which sampling is greedy.
const samplingEps = 1e-5

// SamplingParams are the engine-native sampling parameters for one request.
type SamplingParams struct {
	N                int      `json:"n"`
	BestOf           int      `json:"best_of"`
	PresencePenalty  float64  `json:"presence_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	Temperature      float64  `json:"temperature"`
	TopP             float64  `json:"top_p"`
	TopK             int      `json:"top_k"`
	UseBeamSearch    bool     `json:"use_beam_search"`
	Stop             []string `json:"stop,omitempty"`
	IgnoreEOS        bool     `json:"ignore_eos"`
	MaxTokens        int      `json:"max_tokens"`

	// Logprobs is the number of top alternatives to return per token, or
	// nil when logprobs were not requested.
	Logprobs *int `json:"logprobs,omitempty"`
}

// Verify checks the parameters against the engine's accepted ranges. The
// returned error message is meant to be shown to API clients as is.
func (p SamplingParams) Verify() error {
	if p.N < 1 {
		return fmt.Errorf("n must be at least 1, got %d.", p.N)
	}
	if p.BestOf < p.N {
		return fmt.Errorf("best_of must be greater than or equal to n, got n=%d and best_of=%d.", p.N, p.BestOf)
	}
	if p.PresencePenalty < -2 || p.PresencePenalty > 2 {
		return fmt.Errorf("presence_penalty must be in [-2, 2], got %v.", p.PresencePenalty)
	}
	if p.FrequencyPenalty < -2 || p.FrequencyPenalty > 2 {
		return fmt.Errorf("frequency_penalty must be in [-2, 2], got %v.", p.FrequencyPenalty)
	}
	if p.Temperature < 0 || math.IsNaN(p.Temperature) {
		return fmt.Errorf("temperature must be non-negative, got %v.", p.Temperature)
	}
	if !(p.TopP > 0 && p.TopP <= 1) {
		return fmt.Errorf("top_p must be in (0, 1], got %v.", p.TopP)
	}
	if p.TopK < -1 || p.TopK == 0 {
		return fmt.Errorf("top_k must be -1 (disable), or at least 1, got %d.", p.TopK)
	}
	if p.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d.", p.MaxTokens)
	}
	if p.Logprobs != nil && *p.Logprobs < 0 {
		return fmt.Errorf("logprobs must be non-negative, got %d.", *p.Logprobs)
	}

	switch {
	case p.UseBeamSearch:
		return p.verifyBeamSearch()
	case p.Temperature < samplingEps:
		return p.verifyGreedy()
	}
	return nil
}

func (p SamplingParams) verifyBeamSearch() error {
	if p.BestOf == 1 {
		return fmt.Errorf("best_of must be greater than 1 when using beam search. Got %d.", p.BestOf)
	}
	if p.Temperature > samplingEps {
		return errors.New("temperature must be 0 when using beam search.")
	}
	if p.TopP < 1-samplingEps {
		return errors.New("top_p must be 1 when using beam search.")
	}
	if p.TopK != -1 {
		return errors.New("top_k must be -1 when using beam search.")
	}
	return nil
}

func (p SamplingParams) verifyGreedy() error {
	if p.BestOf > 1 {
		return fmt.Errorf("best_of must be 1 when using greedy sampling. Got %d.", p.BestOf)
	}
	if p.TopP < 1-samplingEps {
		return errors.New("top_p must be 1 when using greedy sampling.")
	}
	if p.TopK != -1 {
		return errors.New("top_k must be -1 when using greedy sampling.")
	}
	return nil
}
