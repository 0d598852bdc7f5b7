// Package response builds the aggregated (non-streaming) OpenAI responses
// from a finished generation session.
package response

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/session"
	"github.com/runpod/vllm/pkg/stream"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// ErrIncomplete is returned by Drain when the engine closed the output
// stream before marking the request finished.
var ErrIncomplete = errors.New("engine output ended before the request finished")

// FinalResult is the last known state of every output index of a request.
type FinalResult struct {
	RequestID string

	// Outputs are sorted by index.
	Outputs []engine.CompletionOutput

	PromptTokens     int
	CompletionTokens int
}

// FinishReasons returns the finish reason of every output, in index order.
func (r *FinalResult) FinishReasons() []string {
	reasons := make([]string, len(r.Outputs))
	for i, out := range r.Outputs {
		reasons[i] = out.FinishReason
	}
	return reasons
}

// Drain consumes a submitted session until the engine finishes and keeps the
// latest snapshot of every index. When ctx ends first the session is
// aborted and session.ErrClientDisconnected is returned.
func Drain(ctx context.Context, sess *session.Session) (*FinalResult, error) {
	defer sess.Cancel(ctx)

	latest := make(map[int]engine.CompletionOutput)
	var promptTokens []int

	for {
		ro, err := sess.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if ro.PromptTokenIDs != nil {
			promptTokens = ro.PromptTokenIDs
		}
		for _, out := range ro.Outputs {
			latest[out.Index] = out
		}
	}

	if !sess.Finished() {
		return nil, fmt.Errorf("%s: %w", sess.ID(), ErrIncomplete)
	}

	result := &FinalResult{
		RequestID:    sess.ID(),
		Outputs:      make([]engine.CompletionOutput, 0, len(latest)),
		PromptTokens: len(promptTokens),
	}
	for _, out := range latest {
		result.Outputs = append(result.Outputs, out)
		result.CompletionTokens += len(out.TokenIDs)
	}
	sort.Slice(result.Outputs, func(i, j int) bool {
		return result.Outputs[i].Index < result.Outputs[j].Index
	})
	return result, nil
}

// Usage returns the usage block of the result.
func (r *FinalResult) Usage() types.UsageInfo {
	return types.NewUsage(r.PromptTokens, r.CompletionTokens)
}

// Chat builds a chat.completion response.
func Chat(r *FinalResult, meta stream.ChunkMeta) *types.ChatCompletionResponse {
	choices := make([]types.ChatCompletionResponseChoice, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		choices = append(choices, types.ChatCompletionResponseChoice{
			Index:        out.Index,
			Message:      types.ChatMessage{Role: types.RoleAssistant, Content: out.Text},
			FinishReason: types.StringPtr(out.FinishReason),
		})
	}

	return &types.ChatCompletionResponse{
		ID:      meta.ID,
		Object:  types.ObjectChatCompletion,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: choices,
		Usage:   r.Usage(),
	}
}

// Completion builds a text_completion response. When logprobs is set every
// choice carries the logprobs of its full output, with text offsets from 0.
func Completion(r *FinalResult, meta stream.ChunkMeta, tok tokenizer.Tokenizer, logprobs bool) (*types.CompletionResponse, error) {
	choices := make([]types.CompletionResponseChoice, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		choice := types.CompletionResponseChoice{
			Index:        out.Index,
			Text:         out.Text,
			FinishReason: types.StringPtr(out.FinishReason),
		}
		if logprobs {
			lp, err := stream.BuildLogProbs(tok, out.TokenIDs, out.Logprobs, 0)
			if err != nil {
				return nil, &stream.ProtocolError{Index: out.Index, Reason: err.Error()}
			}
			choice.Logprobs = lp
		}
		choices = append(choices, choice)
	}

	return &types.CompletionResponse{
		ID:      meta.ID,
		Object:  types.ObjectTextCompletion,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: choices,
		Usage:   r.Usage(),
	}, nil
}
