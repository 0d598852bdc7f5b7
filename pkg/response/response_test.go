package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/runpod/vllm/internal/enginetest"
	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/session"
	"github.com/runpod/vllm/pkg/stream"
)

type mapTokenizer map[int]string

func (m mapTokenizer) Encode(string) []int { return nil }

func (m mapTokenizer) DecodeToken(id int) string {
	if s, ok := m[id]; ok {
		return s
	}
	return fmt.Sprintf("<%d>", id)
}

var meta = stream.ChunkMeta{ID: "cmpl-test", Model: "m", Created: 1700000000}

func params(n int) engine.SamplingParams {
	return engine.SamplingParams{N: n, BestOf: n, Temperature: 1, TopP: 1, TopK: -1, MaxTokens: 16}
}

func submit(t *testing.T, ctx context.Context, fake *enginetest.Fake, n int) *session.Session {
	t.Helper()
	s := session.New(fake, "prompt", params(n))
	if _, err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDrain_MergesLatestSnapshots(t *testing.T) {
	fake := &enginetest.Fake{Script: enginetest.Growing([]int{1, 2, 3}, "stop",
		[]string{"a", "b", "c"},
		[]string{"x", "y"},
	)}
	ctx := context.Background()
	s := submit(t, ctx, fake, 2)

	result, err := Drain(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Outputs) != 2 {
		t.Fatalf("outputs = %d", len(result.Outputs))
	}
	if result.Outputs[0].Text != "abc" || result.Outputs[1].Text != "xy" {
		t.Errorf("texts = %q, %q", result.Outputs[0].Text, result.Outputs[1].Text)
	}
	if result.PromptTokens != 3 || result.CompletionTokens != 5 {
		t.Errorf("usage = %d/%d", result.PromptTokens, result.CompletionTokens)
	}
	if got := result.FinishReasons(); got[0] != "stop" || got[1] != "stop" {
		t.Errorf("finish reasons = %v", got)
	}
	if len(fake.Aborts()) != 0 {
		t.Errorf("natural completion must not abort, got %v", fake.Aborts())
	}
}

func TestDrain_DisconnectAbortsOnce(t *testing.T) {
	gate := make(chan struct{})
	fake := &enginetest.Fake{
		Script: enginetest.Growing(nil, "length", []string{"a", "b", "c", "d", "e"}),
		Gate:   gate,
	}
	ctx, disconnect := context.WithCancel(context.Background())
	defer disconnect()
	s := submit(t, ctx, fake, 1)

	done := make(chan error, 1)
	go func() {
		_, err := Drain(ctx, s)
		done <- err
	}()

	// After the third release the first two snapshots were delivered.
	for i := 0; i < 3; i++ {
		gate <- struct{}{}
	}
	disconnect()

	select {
	case err := <-done:
		if !errors.Is(err, session.ErrClientDisconnected) {
			t.Fatalf("Drain = %v, want ErrClientDisconnected", err)
		}
		if msg := proxy.HandleError(err).Message; msg != "Client disconnected" {
			t.Errorf("client message = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drain did not return after disconnect")
	}

	if n := fake.AbortCount(s.ID()); n != 1 {
		t.Errorf("abort count = %d, want 1", n)
	}
}

func TestDrain_Incomplete(t *testing.T) {
	fake := &enginetest.Fake{Script: []*engine.RequestOutput{
		{Outputs: []engine.CompletionOutput{{Index: 0, Text: "a", TokenIDs: []int{1}}}},
	}}
	ctx := context.Background()
	s := submit(t, ctx, fake, 1)

	if _, err := Drain(ctx, s); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Drain = %v, want ErrIncomplete", err)
	}
	if fake.AbortCount(s.ID()) != 1 {
		t.Error("an unfinished request must be aborted")
	}
}

func TestChat(t *testing.T) {
	result := &FinalResult{
		Outputs: []engine.CompletionOutput{
			{Index: 0, Text: "Hi there", TokenIDs: []int{1, 2}, FinishReason: "stop"},
		},
		PromptTokens:     4,
		CompletionTokens: 2,
	}

	resp := Chat(result, meta)
	if resp.Object != types.ObjectChatCompletion || resp.ID != "cmpl-test" {
		t.Errorf("unexpected header %+v", resp)
	}
	choice := resp.Choices[0]
	if choice.Message.Role != "assistant" || choice.Message.Content != "Hi there" {
		t.Errorf("message = %+v", choice.Message)
	}
	if choice.FinishReason == nil || *choice.FinishReason != "stop" {
		t.Errorf("finish reason = %v", choice.FinishReason)
	}
	if resp.Usage.TotalTokens != 6 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestCompletion_Logprobs(t *testing.T) {
	tok := mapTokenizer{1: "Hé", 2: "llo", 3: "lp"}
	result := &FinalResult{
		Outputs: []engine.CompletionOutput{{
			Index:        0,
			Text:         "Héllo",
			TokenIDs:     []int{1, 2},
			Logprobs:     []map[int]float64{{1: -0.1, 3: -2}, {2: -0.2}},
			FinishReason: "length",
		}},
		PromptTokens:     1,
		CompletionTokens: 2,
	}

	resp, err := Completion(result, meta, tok, true)
	if err != nil {
		t.Fatal(err)
	}
	lp := resp.Choices[0].Logprobs
	if lp == nil {
		t.Fatal("expected logprobs")
	}
	if lp.TextOffset[0] != 0 || lp.TextOffset[1] != 2 {
		t.Errorf("text offsets = %v", lp.TextOffset)
	}
	if lp.Tokens[1] != "llo" || lp.TokenLogprobs[1] != -0.2 {
		t.Errorf("tokens = %v, logprobs = %v", lp.Tokens, lp.TokenLogprobs)
	}
	if lp.TopLogprobs[0]["lp"] != -2 {
		t.Errorf("top logprobs = %v", lp.TopLogprobs[0])
	}

	plain, err := Completion(result, meta, tok, false)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Choices[0].Logprobs != nil {
		t.Error("logprobs must be null when not requested")
	}

	result.Outputs[0].Logprobs = nil
	var perr *stream.ProtocolError
	if _, err := Completion(result, meta, tok, true); !errors.As(err, &perr) {
		t.Errorf("expected protocol error for missing logprobs, got %v", err)
	}
}

func TestWriteFakeStream(t *testing.T) {
	body, err := Completion(&FinalResult{
		Outputs: []engine.CompletionOutput{{Index: 0, Text: "best", TokenIDs: []int{1}, FinishReason: "stop"}},
	}, meta, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	if err := WriteFakeStream(rec, body); err != nil {
		t.Fatal(err)
	}

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("frames = %q", frames)
	}
	if frames[1] != "data: [DONE]" {
		t.Errorf("terminator = %q", frames[1])
	}

	var got types.CompletionResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &got); err != nil {
		t.Fatal(err)
	}
	if got.Object != types.ObjectTextCompletion || got.Choices[0].Text != "best" {
		t.Errorf("event = %+v", got)
	}
}
