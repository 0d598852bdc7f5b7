package stream

import (
	"github.com/runpod/vllm/pkg/engine"
)

// Translator turns the snapshots of one request into ordered events. It is
// owned by the goroutine serving the request and is not safe for concurrent
// use.
type Translator struct {
	opts   Options
	states []IndexState

	promptTokens int
	started      bool
	terminated   bool
}

// NewTranslator returns a translator for n output indices.
func NewTranslator(n int, opts Options) *Translator {
	if n < 1 {
		n = 1
	}
	return &Translator{
		opts:   opts,
		states: make([]IndexState, n),
	}
}

// Start returns the events sent before any output: one role announcement
// per index in chat mode, nothing for completions. Later calls return nil.
func (t *Translator) Start() []Event {
	if t.started {
		return nil
	}
	t.started = true

	var events []Event
	for i := range t.states {
		var evs []Event
		t.states[i], evs = Announce(t.states[i], i, t.opts)
		events = append(events, evs...)
	}
	return events
}

// Translate returns the events for one engine snapshot. When the snapshot
// finishes the last open index the terminator event is appended.
func (t *Translator) Translate(ro *engine.RequestOutput) ([]Event, error) {
	if t.terminated {
		return nil, nil
	}
	if len(ro.PromptTokenIDs) > 0 {
		t.promptTokens = len(ro.PromptTokenIDs)
	}

	var events []Event
	for _, out := range ro.Outputs {
		if out.Index < 0 || out.Index >= len(t.states) {
			return events, &ProtocolError{Index: out.Index, Reason: "output index out of range"}
		}

		next, evs, err := Advance(t.states[out.Index], out, t.opts)
		if err != nil {
			return events, err
		}
		t.states[out.Index] = next
		events = append(events, evs...)
	}

	if t.allFinished() {
		t.terminated = true
		events = append(events, Event{Done: true})
	}
	return events, nil
}

// Close returns the terminator if it has not been sent. It is used when the
// engine ends the request without a finish reason on every index.
func (t *Translator) Close() []Event {
	if t.terminated {
		return nil
	}
	t.terminated = true
	return []Event{{Done: true}}
}

// Done reports whether the terminator was produced.
func (t *Translator) Done() bool {
	return t.terminated
}

// States returns a copy of the per-index state.
func (t *Translator) States() []IndexState {
	return append([]IndexState(nil), t.states...)
}

// Usage returns the prompt token count and the total tokens emitted across
// all indices so far.
func (t *Translator) Usage() (prompt, completion int) {
	for _, s := range t.states {
		completion += s.PreviousTokenCount
	}
	return t.promptTokens, completion
}

// FinishReasons returns the finish reason of each finished index.
func (t *Translator) FinishReasons() []string {
	var reasons []string
	for _, s := range t.states {
		if s.Phase == Finished {
			reasons = append(reasons, s.FinishReason)
		}
	}
	return reasons
}

func (t *Translator) allFinished() bool {
	for _, s := range t.states {
		if s.Phase != Finished {
			return false
		}
	}
	return true
}

// ShouldStream reports whether a request is streamed incrementally. Chat
// requests stream whenever the client asks. Completions stream only when
// every candidate is returned (best_of unset or equal to n) and beam search
// is off; otherwise the result is aggregated first.
func ShouldStream(mode Mode, stream bool, n int, bestOf *int, beamSearch bool) bool {
	if !stream {
		return false
	}
	if mode == ModeChat {
		return true
	}
	return (bestOf == nil || *bestOf == n) && !beamSearch
}
