// Package tokenizer provides the tokenization contract used to measure
// prompts and render logprobs, with a BPE implementation and a memoising
// wrapper.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode returns the token ids of text.
	Encode(text string) []int

	// DecodeToken returns the text of a single token id.
	DecodeToken(id int) string
}

func init() {
	// Encodings are embedded in the binary; never fetch them at runtime.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// BPE is a byte-pair-encoding tokenizer backed by tiktoken.
type BPE struct {
	encoding string
	tk       *tiktoken.Tiktoken
}

// NewBPE creates a BPE tokenizer for the named encoding
// ("cl100k_base", "o200k_base", "p50k_base" or "r50k_base").
func NewBPE(encoding string) (*BPE, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}

	return &BPE{encoding: encoding, tk: tk}, nil
}

// Encoding returns the encoding name.
func (b *BPE) Encoding() string {
	return b.encoding
}

// Encode returns the token ids of text. Special-token text is encoded as
// ordinary text.
func (b *BPE) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return b.tk.Encode(text, nil, nil)
}

// DecodeToken returns the text of one token.
func (b *BPE) DecodeToken(id int) string {
	return b.tk.Decode([]int{id})
}
