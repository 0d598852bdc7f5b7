package engine

import (
	"context"
	"time"
)

// Engine is the contract the gateway consumes from a text-generation engine.
// The engine owns scheduling, batching, memory management and sampling; the
// gateway only submits requests, reads their outputs and aborts them.
//
// Implementations must be safe for concurrent use by many requests.
type Engine interface {
	// Generate submits prompt for generation under requestID and returns a
	// channel of cumulative output snapshots. The channel is closed when the
	// engine marks the request finished, when Abort is called for requestID,
	// or when ctx is cancelled. A failure after submission is delivered as a
	// final RequestOutput with Err set.
	Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (<-chan *RequestOutput, error)

	// Abort stops generation for requestID and releases its engine-side
	// resources. Aborting an unknown or finished request is not an error.
	Abort(ctx context.Context, requestID string) error

	// ModelMetadata returns the context-window fields of the loaded model.
	ModelMetadata(ctx context.Context) (*ModelMetadata, error)

	// SchedulerSnapshot returns a read-only view of the engine backlog.
	SchedulerSnapshot(ctx context.Context) (*SchedulerSnapshot, error)

	// HealthCheck reports whether the engine is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases client-side resources.
	Close() error
}

// CompletionOutput is one output sequence of a request as of one engine
// callback. Text, TokenIDs and Logprobs are cumulative: each snapshot holds
// everything generated so far for Index.
type CompletionOutput struct {
	Index        int               `json:"index"`
	Text         string            `json:"text"`
	TokenIDs     []int             `json:"token_ids"`
	Logprobs     []map[int]float64 `json:"logprobs,omitempty"`
	FinishReason string            `json:"finish_reason,omitempty"`
}

// Finished reports whether the engine attached a finish reason.
func (o CompletionOutput) Finished() bool {
	return o.FinishReason != ""
}

// RequestOutput is one engine callback for a request. Outputs may carry only
// the indices that changed since the previous callback.
type RequestOutput struct {
	RequestID      string             `json:"request_id"`
	PromptTokenIDs []int              `json:"prompt_token_ids"`
	Outputs        []CompletionOutput `json:"outputs"`
	Finished       bool               `json:"finished"`

	// Err is set on the last value sent when generation failed mid-stream.
	Err error `json:"-"`
}

// ModelMetadata carries the model configuration fields that may describe the
// context window. Any of them may be absent.
type ModelMetadata struct {
	MaxSequenceLength     *int `json:"max_sequence_length,omitempty"`
	SeqLength             *int `json:"seq_length,omitempty"`
	MaxPositionEmbeddings *int `json:"max_position_embeddings,omitempty"`
}

// SchedulerSnapshot is the engine's backlog at one point in time. Each slice
// holds the sequence count of one sequence group in that state.
type SchedulerSnapshot struct {
	Running      []int     `json:"running"`
	Waiting      []int     `json:"waiting"`
	Swapped      []int     `json:"swapped"`
	LastActivity time.Time `json:"last_activity"`
}
