package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChatCompletionRequest is the body of POST /v1/chat/completions.
//
// Optional numeric fields are pointers so that the sampling builder can tell
// an omitted field from an explicit zero and apply the protocol defaults.
type ChatCompletionRequest struct {
	// Model must equal the served model name.
	Model string `json:"model"`

	// Messages is the conversation history, or a raw prompt string.
	Messages ChatMessages `json:"messages"`

	// Temperature defaults to 0.7.
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP defaults to 1.0.
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of output sequences. Defaults to 1.
	N *int `json:"n,omitempty"`

	// MaxTokens defaults to 16.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Stop accepts a single string or a list of strings.
	Stop StringList `json:"stop,omitempty"`

	// Stream requests server-sent events.
	Stream bool `json:"stream,omitempty"`

	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`

	// LogitBias is not supported; any non-null value is rejected.
	LogitBias map[string]float64 `json:"logit_bias,omitempty"`

	// User is accepted for compatibility and otherwise ignored.
	User string `json:"user,omitempty"`

	// Engine extensions.
	BestOf        *int `json:"best_of,omitempty"`
	TopK          *int `json:"top_k,omitempty"`
	IgnoreEOS     bool `json:"ignore_eos,omitempty"`
	UseBeamSearch bool `json:"use_beam_search,omitempty"`
}

// Validate checks that required fields are present.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if !r.Messages.Set() {
		return &ValidationError{Field: "messages", Message: "messages is required"}
	}
	for i, m := range r.Messages.List {
		if m.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		}
	}
	return nil
}

// CompletionRequest is the body of POST /v1/completions.
type CompletionRequest struct {
	Model string `json:"model"`

	// Prompt accepts a single string or a list holding exactly one string.
	Prompt PromptInput `json:"prompt"`

	// Suffix is not supported; any non-null value is rejected.
	Suffix *string `json:"suffix,omitempty"`

	// MaxTokens defaults to 16.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Temperature defaults to 1.0.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	N           *int     `json:"n,omitempty"`
	Stream      bool     `json:"stream,omitempty"`

	// Logprobs is the number of top alternatives to return per token.
	Logprobs *int `json:"logprobs,omitempty"`

	// Echo is not supported; true is rejected.
	Echo bool `json:"echo,omitempty"`

	Stop             StringList         `json:"stop,omitempty"`
	PresencePenalty  float64            `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64            `json:"frequency_penalty,omitempty"`
	BestOf           *int               `json:"best_of,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	User             string             `json:"user,omitempty"`

	// Engine extensions.
	TopK          *int `json:"top_k,omitempty"`
	IgnoreEOS     bool `json:"ignore_eos,omitempty"`
	UseBeamSearch bool `json:"use_beam_search,omitempty"`
}

// Validate checks that required fields are present.
func (r *CompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if !r.Prompt.set {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	return nil
}

// ChatMessage is one role-tagged entry of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessages is either a list of messages or a raw prompt string.
type ChatMessages struct {
	// Raw holds the prompt when messages was sent as a string.
	Raw *string

	// List holds the messages when messages was sent as an array.
	List []ChatMessage
}

// Set reports whether messages was present in the request body.
func (m ChatMessages) Set() bool {
	return m.Raw != nil || m.List != nil
}

// UnmarshalJSON accepts a string or an array of messages.
func (m *ChatMessages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m.Raw = &s
		return nil
	}

	var list []ChatMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("messages must be a string or a list of messages: %w", err)
	}
	if list == nil {
		list = []ChatMessage{}
	}
	m.List = list
	return nil
}

// MarshalJSON writes the form the messages were received in.
func (m ChatMessages) MarshalJSON() ([]byte, error) {
	if m.Raw != nil {
		return json.Marshal(*m.Raw)
	}
	return json.Marshal(m.List)
}

// PromptInput is a completion prompt given as a string or a list of strings.
type PromptInput struct {
	Values []string

	// IsList is true when the prompt was sent as an array.
	IsList bool

	set bool
}

// NewPrompt returns a single-string prompt.
func NewPrompt(s string) PromptInput {
	return PromptInput{Values: []string{s}, set: true}
}

// NewPromptList returns a list prompt.
func NewPromptList(values ...string) PromptInput {
	return PromptInput{Values: values, IsList: true, set: true}
}

// UnmarshalJSON accepts a string or an array of strings.
func (p *PromptInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = NewPrompt(s)
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("prompt must be a string or a list of strings: %w", err)
	}
	*p = NewPromptList(values...)
	return nil
}

// MarshalJSON writes the form the prompt was received in.
func (p PromptInput) MarshalJSON() ([]byte, error) {
	if !p.IsList && len(p.Values) == 1 {
		return json.Marshal(p.Values[0])
	}
	if p.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Values)
}

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("stop must be a string or a list of strings: %w", err)
	}
	*s = list
	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
