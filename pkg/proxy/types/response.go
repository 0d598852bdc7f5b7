package types

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Object names used in responses.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectTextCompletion      = "text_completion"
	ObjectModel               = "model"
	ObjectModelPermission     = "model_permission"
	ObjectList                = "list"
	ObjectError               = "error"
)

// RoleAssistant is the role of generated messages.
const RoleAssistant = "assistant"

// UsageInfo contains token usage statistics.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds usage from prompt and completion counts.
func NewUsage(prompt, completion int) UsageInfo {
	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// LogProbs is the OpenAI completions logprobs object. All four lists are
// parallel, one entry per generated token.
type LogProbs struct {
	// TextOffset is the character offset of each token in the output text.
	TextOffset []int `json:"text_offset"`

	// TokenLogprobs is the log probability of each sampled token.
	TokenLogprobs []float64 `json:"token_logprobs"`

	// Tokens holds the decoded text of each token.
	Tokens []string `json:"tokens"`

	// TopLogprobs maps decoded alternatives to their log probability.
	TopLogprobs []map[string]float64 `json:"top_logprobs"`
}

// NewLogProbs returns an empty logprobs object that encodes its lists as []
// rather than null.
func NewLogProbs() *LogProbs {
	return &LogProbs{
		TextOffset:    []int{},
		TokenLogprobs: []float64{},
		Tokens:        []string{},
		TopLogprobs:   []map[string]float64{},
	}
}

// ChatCompletionResponse is the non-streaming chat response.
type ChatCompletionResponse struct {
	ID      string                         `json:"id"`
	Object  string                         `json:"object"`
	Created int64                          `json:"created"`
	Model   string                         `json:"model"`
	Choices []ChatCompletionResponseChoice `json:"choices"`
	Usage   UsageInfo                      `json:"usage"`
}

// ChatCompletionResponseChoice is one output sequence of a chat response.
type ChatCompletionResponseChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

// ChatCompletionStreamResponse is one SSE chunk of a chat stream.
type ChatCompletionStreamResponse struct {
	ID      string                               `json:"id"`
	Object  string                               `json:"object"`
	Created int64                                `json:"created"`
	Model   string                               `json:"model"`
	Choices []ChatCompletionResponseStreamChoice `json:"choices"`
}

// ChatCompletionResponseStreamChoice is the per-index part of a chat chunk.
type ChatCompletionResponseStreamChoice struct {
	Index        int          `json:"index"`
	Delta        DeltaMessage `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

// DeltaMessage is the incremental part of a chat chunk. The first chunk for
// an index carries only Role; later chunks carry only Content.
type DeltaMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// CompletionResponse is the non-streaming completions response.
type CompletionResponse struct {
	ID      string                     `json:"id"`
	Object  string                     `json:"object"`
	Created int64                      `json:"created"`
	Model   string                     `json:"model"`
	Choices []CompletionResponseChoice `json:"choices"`
	Usage   UsageInfo                  `json:"usage"`
}

// CompletionResponseChoice is one output sequence of a completions response.
type CompletionResponseChoice struct {
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	Logprobs     *LogProbs `json:"logprobs"`
	FinishReason *string   `json:"finish_reason"`
}

// CompletionStreamResponse is one SSE chunk of a completions stream.
type CompletionStreamResponse struct {
	ID      string                           `json:"id"`
	Object  string                           `json:"object"`
	Created int64                            `json:"created"`
	Model   string                           `json:"model"`
	Choices []CompletionResponseStreamChoice `json:"choices"`
}

// CompletionResponseStreamChoice is the per-index part of a completions chunk.
type CompletionResponseStreamChoice struct {
	Index        int       `json:"index"`
	Text         string    `json:"text"`
	Logprobs     *LogProbs `json:"logprobs"`
	FinishReason *string   `json:"finish_reason"`
}

// ModelPermission is the single permission entry attached to a model card.
type ModelPermission struct {
	ID                 string  `json:"id"`
	Object             string  `json:"object"`
	Created            int64   `json:"created"`
	AllowCreateEngine  bool    `json:"allow_create_engine"`
	AllowSampling      bool    `json:"allow_sampling"`
	AllowLogprobs      bool    `json:"allow_logprobs"`
	AllowSearchIndices bool    `json:"allow_search_indices"`
	AllowView          bool    `json:"allow_view"`
	AllowFineTuning    bool    `json:"allow_fine_tuning"`
	Organization       string  `json:"organization"`
	Group              *string `json:"group"`
	IsBlocking         bool    `json:"is_blocking"`
}

// NewModelPermission returns the default permission entry.
func NewModelPermission(created int64) ModelPermission {
	return ModelPermission{
		ID:            "modelperm-" + RandomHex(),
		Object:        ObjectModelPermission,
		Created:       created,
		AllowSampling: true,
		AllowLogprobs: true,
		AllowView:     true,
		Organization:  "*",
	}
}

// ModelCard describes the served model.
type ModelCard struct {
	ID         string            `json:"id"`
	Object     string            `json:"object"`
	Created    int64             `json:"created"`
	OwnedBy    string            `json:"owned_by"`
	Root       *string           `json:"root"`
	Parent     *string           `json:"parent"`
	Permission []ModelPermission `json:"permission"`
}

// NewModelCard returns the card for the served model.
func NewModelCard(name string, created int64) ModelCard {
	root := name
	return ModelCard{
		ID:         name,
		Object:     ObjectModel,
		Created:    created,
		OwnedBy:    "vllm",
		Root:       &root,
		Permission: []ModelPermission{NewModelPermission(created)},
	}
}

// ModelList is the body of GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelCard `json:"data"`
}

// RandomHex returns a random UUID without dashes.
func RandomHex() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NewRequestID returns a completion id of the form "cmpl-<32 hex>".
func NewRequestID() string {
	return "cmpl-" + RandomHex()
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
