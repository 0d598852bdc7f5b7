package stream

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// Phase is the lifecycle of one output index.
type Phase int

const (
	// Accumulating indices still receive text.
	Accumulating Phase = iota

	// Finished indices have emitted their finish event.
	Finished
)

// String returns the phase name.
func (p Phase) String() string {
	if p == Finished {
		return "finished"
	}
	return "accumulating"
}

// Mode selects the response protocol.
type Mode int

const (
	// ModeChat produces chat.completion.chunk deltas and role announcements.
	ModeChat Mode = iota

	// ModeCompletion produces text_completion chunks, optionally with
	// logprobs.
	ModeCompletion
)

// String returns the endpoint kind.
func (m Mode) String() string {
	if m == ModeCompletion {
		return "completion"
	}
	return "chat"
}

// IndexState is what has already been emitted for one output index.
type IndexState struct {
	PreviousText       string
	PreviousTokenCount int
	Phase              Phase
	RoleSent           bool
	FinishReason       string
}

// Options configure translation.
type Options struct {
	Mode Mode

	// Logprobs enables per-token logprobs rendering (completions only).
	Logprobs bool

	// Tokenizer decodes token ids for logprobs. Required when Logprobs is set.
	Tokenizer tokenizer.Tokenizer
}

// Event is one protocol-level delta for one index, or the terminator.
type Event struct {
	Index int

	// Role is set on the chat role announcement only.
	Role string

	// Text is the newly generated text.
	Text string

	// Logprobs covers exactly the tokens behind Text. Nil unless logprobs
	// were requested.
	Logprobs *types.LogProbs

	// FinishReason is set on the finish event only.
	FinishReason string

	// Done marks the stream terminator.
	Done bool
}

// ProtocolError reports engine output that violates the streaming contract.
type ProtocolError struct {
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("engine protocol error on output %d: %s", e.Index, e.Reason)
}

// Announce returns the state after the role announcement and the event to
// send. Completions have no announcement.
func Announce(state IndexState, index int, opts Options) (IndexState, []Event) {
	if opts.Mode != ModeChat || state.RoleSent {
		return state, nil
	}
	state.RoleSent = true
	return state, []Event{{Index: index, Role: types.RoleAssistant}}
}

// Advance computes the events for one cumulative snapshot of an index and
// returns the new state. It does not modify its arguments.
//
// The text delta is the snapshot text beyond PreviousText, and logprobs are
// sliced from PreviousTokenCount. A snapshot with nothing new yields no
// content event. A finish reason yields one extra event with empty text, and
// moves the index to Finished; later snapshots for a finished index are
// ignored as long as they repeat the final text.
func Advance(state IndexState, out engine.CompletionOutput, opts Options) (IndexState, []Event, error) {
	if !strings.HasPrefix(out.Text, state.PreviousText) {
		return state, nil, &ProtocolError{Index: out.Index, Reason: "output text is not an extension of the text already sent"}
	}
	if len(out.TokenIDs) < state.PreviousTokenCount {
		return state, nil, &ProtocolError{Index: out.Index, Reason: "output token count decreased"}
	}

	if state.Phase == Finished {
		if out.Text != state.PreviousText || len(out.TokenIDs) != state.PreviousTokenCount {
			return state, nil, &ProtocolError{Index: out.Index, Reason: "output grew after finishing"}
		}
		return state, nil, nil
	}

	state, events := Announce(state, out.Index, opts)

	delta := out.Text[len(state.PreviousText):]
	newTokens := len(out.TokenIDs) > state.PreviousTokenCount

	if delta != "" || newTokens {
		ev := Event{Index: out.Index, Text: delta}
		if opts.Logprobs {
			lp, err := BuildLogProbs(opts.Tokenizer, out.TokenIDs[state.PreviousTokenCount:],
				sliceFrom(out.Logprobs, state.PreviousTokenCount), utf8.RuneCountInString(state.PreviousText))
			if err != nil {
				return state, nil, &ProtocolError{Index: out.Index, Reason: err.Error()}
			}
			ev.Logprobs = lp
		}
		events = append(events, ev)
	}

	state.PreviousText = out.Text
	state.PreviousTokenCount = len(out.TokenIDs)

	if out.FinishReason != "" {
		fin := Event{Index: out.Index, FinishReason: out.FinishReason}
		if opts.Logprobs {
			fin.Logprobs = types.NewLogProbs()
		}
		events = append(events, fin)
		state.Phase = Finished
		state.FinishReason = out.FinishReason
	}

	return state, events, nil
}

func sliceFrom(lps []map[int]float64, from int) []map[int]float64 {
	if from >= len(lps) {
		return nil
	}
	return lps[from:]
}

// BuildLogProbs renders OpenAI logprobs for tokenIDs. logprobs[i] holds the
// alternatives for position i and must include tokenIDs[i]. Text offsets are
// in characters, starting at initialOffset.
func BuildLogProbs(tok tokenizer.Tokenizer, tokenIDs []int, logprobs []map[int]float64, initialOffset int) (*types.LogProbs, error) {
	if tok == nil {
		return nil, fmt.Errorf("logprobs requested without a tokenizer")
	}
	if len(logprobs) < len(tokenIDs) {
		return nil, fmt.Errorf("%d logprobs for %d tokens", len(logprobs), len(tokenIDs))
	}

	lp := types.NewLogProbs()
	offset := initialOffset
	for i, id := range tokenIDs {
		alts := logprobs[i]
		p, ok := alts[id]
		if !ok {
			return nil, fmt.Errorf("no logprob for sampled token %d", id)
		}

		token := tok.DecodeToken(id)
		lp.Tokens = append(lp.Tokens, token)
		lp.TokenLogprobs = append(lp.TokenLogprobs, p)
		lp.TextOffset = append(lp.TextOffset, offset)
		offset += utf8.RuneCountInString(token)

		top := make(map[string]float64, len(alts))
		for altID, altP := range alts {
			top[tok.DecodeToken(altID)] = altP
		}
		lp.TopLogprobs = append(lp.TopLogprobs, top)
	}
	return lp, nil
}
