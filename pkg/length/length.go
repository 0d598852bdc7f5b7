// Package length rejects requests whose prompt plus requested completion
// would not fit in the model's context window.
package length

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// DefaultContextWindow is used when the model metadata names no length.
const DefaultContextWindow = 2048

// ResolveContextWindow returns the first present of max_sequence_length,
// seq_length and max_position_embeddings, or DefaultContextWindow.
func ResolveContextWindow(meta *engine.ModelMetadata) int {
	if meta == nil {
		return DefaultContextWindow
	}
	for _, v := range []*int{meta.MaxSequenceLength, meta.SeqLength, meta.MaxPositionEmbeddings} {
		if v != nil {
			return *v
		}
	}
	return DefaultContextWindow
}

// ExceededError reports a request that does not fit the context window.
type ExceededError struct {
	ContextWindow int
	PromptTokens  int
	MaxTokens     int
}

// Error implements the error interface. The message is shown to clients.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("This model's maximum context length is %d tokens. "+
		"However, you requested %d tokens (%d in the messages, %d in the completion). "+
		"Please reduce the length of the messages or completion.",
		e.ContextWindow, e.requested(), e.PromptTokens, e.MaxTokens)
}

// requested is PromptTokens + MaxTokens, saturated at math.MaxInt.
func (e *ExceededError) requested() int {
	if e.MaxTokens > math.MaxInt-e.PromptTokens {
		return math.MaxInt
	}
	return e.PromptTokens + e.MaxTokens
}

// Guard measures prompts against a fixed context window.
type Guard struct {
	tok    tokenizer.Tokenizer
	window int
}

// NewGuard returns a guard for contextWindow tokens. A non-positive window
// selects DefaultContextWindow.
func NewGuard(tok tokenizer.Tokenizer, contextWindow int) *Guard {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	return &Guard{tok: tok, window: contextWindow}
}

// FromEngine resolves the context window from the engine's model metadata.
func FromEngine(ctx context.Context, eng engine.Engine, tok tokenizer.Tokenizer) (*Guard, error) {
	meta, err := eng.ModelMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model metadata: %w", err)
	}
	return NewGuard(tok, ResolveContextWindow(meta)), nil
}

// ContextWindow returns the limit enforced by the guard.
func (g *Guard) ContextWindow() int {
	return g.window
}

// Check counts the prompt tokens and returns them, or an *ExceededError when
// promptTokens + maxTokens exceeds the context window. The comparison does not
// add the two, so a huge maxTokens cannot wrap around.
func (g *Guard) Check(ctx context.Context, prompt string, maxTokens int) (int, error) {
	promptTokens := len(g.tok.Encode(prompt))

	if maxTokens > g.window-promptTokens {
		slog.DebugContext(ctx, "request exceeds context window",
			"prompt_tokens", promptTokens,
			"max_tokens", maxTokens,
			"context_window", g.window,
		)
		return promptTokens, &ExceededError{
			ContextWindow: g.window,
			PromptTokens:  promptTokens,
			MaxTokens:     maxTokens,
		}
	}
	return promptTokens, nil
}
