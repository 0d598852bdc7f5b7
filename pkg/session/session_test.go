package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/runpod/vllm/internal/enginetest"
	"github.com/runpod/vllm/pkg/engine"
)

func params() engine.SamplingParams {
	return engine.SamplingParams{N: 1, BestOf: 1, Temperature: 1, TopP: 1, TopK: -1, MaxTokens: 16}
}

func TestSession_RunsToCompletion(t *testing.T) {
	fake := &enginetest.Fake{Script: enginetest.Growing([]int{1, 2}, "stop", []string{"a", "b", "c"})}
	s := New(fake, "prompt", params())

	if !strings.HasPrefix(s.ID(), "cmpl-") || len(s.ID()) != len("cmpl-")+32 {
		t.Errorf("unexpected request id %q", s.ID())
	}

	ctx := context.Background()
	if _, err := s.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var last *engine.RequestOutput
	for {
		ro, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ro.RequestID != s.ID() {
			t.Errorf("request id = %q, want %q", ro.RequestID, s.ID())
		}
		last = ro
	}

	if last == nil || last.Outputs[0].Text != "abc" {
		t.Fatalf("unexpected last output %+v", last)
	}
	if !s.Finished() {
		t.Error("session must be finished")
	}

	s.Cancel(ctx)
	if n := len(fake.Aborts()); n != 0 {
		t.Errorf("cancel after completion sent %d aborts", n)
	}

	subs := fake.Submissions()
	if len(subs) != 1 || subs[0].Prompt != "prompt" || subs[0].RequestID != s.ID() {
		t.Errorf("unexpected submissions %+v", subs)
	}
}

func TestSession_SubmitOnce(t *testing.T) {
	fake := &enginetest.Fake{Script: enginetest.Growing(nil, "stop", []string{"a"})}
	s := New(fake, "p", params())

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second Submit = %v, want ErrAlreadySubmitted", err)
	}
	if n := len(fake.Submissions()); n != 1 {
		t.Errorf("engine saw %d submissions", n)
	}
}

func TestSession_NextBeforeSubmit(t *testing.T) {
	s := New(&enginetest.Fake{}, "p", params())
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("Next = %v, want ErrNotSubmitted", err)
	}
}

func TestSession_SubmitError(t *testing.T) {
	boom := errors.New("engine down")
	fake := &enginetest.Fake{GenerateErr: boom}
	s := New(fake, "p", params())

	if _, err := s.Submit(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Submit = %v, want wrapped engine error", err)
	}
	s.Cancel(context.Background())
	if n := len(fake.Aborts()); n != 0 {
		t.Errorf("failed submission must not be aborted, got %d aborts", n)
	}
}

func TestSession_CancelIsIdempotent(t *testing.T) {
	fake := &enginetest.Fake{
		Script: []*engine.RequestOutput{
			{Outputs: []engine.CompletionOutput{{Index: 0, Text: "a", TokenIDs: []int{1}}}},
		},
		Hold: true,
	}
	s := New(fake, "p", params())

	ctx := context.Background()
	if _, err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}

	s.Cancel(ctx)
	s.Cancel(ctx)

	if n := fake.AbortCount(s.ID()); n != 1 {
		t.Errorf("abort count = %d, want 1", n)
	}
	if !s.Aborted() {
		t.Error("Aborted() = false")
	}

	// The aborted stream ends.
	if _, err := s.Next(ctx); err != io.EOF {
		t.Errorf("Next after cancel = %v, want io.EOF", err)
	}
}

func TestSession_DisconnectAfterTwoOfFive(t *testing.T) {
	gate := make(chan struct{})
	fake := &enginetest.Fake{
		Script: enginetest.Growing([]int{1}, "length", []string{"a", "b", "c", "d", "e"}),
		Gate:   gate,
	}
	s := New(fake, "p", params())

	ctx, disconnect := context.WithCancel(context.Background())
	defer disconnect()

	if _, err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		gate <- struct{}{}
		if _, err := s.Next(ctx); err != nil {
			t.Fatalf("snapshot %d: %v", i, err)
		}
	}

	disconnect()
	if _, err := s.Next(ctx); !errors.Is(err, ErrClientDisconnected) {
		t.Fatalf("Next = %v, want ErrClientDisconnected", err)
	}

	s.Cancel(ctx)
	if n := fake.AbortCount(s.ID()); n != 1 {
		t.Errorf("abort count = %d, want exactly 1", n)
	}
	if s.Finished() {
		t.Error("session must not be finished")
	}
}

func TestSession_EngineErrorMidStream(t *testing.T) {
	boom := errors.New("worker crashed")
	fake := &enginetest.Fake{Script: []*engine.RequestOutput{
		{Outputs: []engine.CompletionOutput{{Index: 0, Text: "a", TokenIDs: []int{1}}}},
		{Err: boom},
	}}
	s := New(fake, "p", params())

	ctx := context.Background()
	if _, err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(ctx); !errors.Is(err, boom) {
		t.Errorf("Next = %v, want engine error", err)
	}
}
