// Package session owns one in-flight generation request: it submits the
// request to the engine, hands out its output snapshots one at a time and
// guarantees that the engine is told to abort when the consumer goes away.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/proxy/types"
)

var (
	// ErrClientDisconnected is returned by Next when the consumer's context
	// ends before the engine finished.
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrAlreadySubmitted is returned by a second call to Submit.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrNotSubmitted is returned by Next before Submit.
	ErrNotSubmitted = errors.New("session not submitted")
)

// abortTimeout bounds the abort call issued after the request context ended.
const abortTimeout = 5 * time.Second

// Session is a single-consumer handle on one generation request. It is
// created per request and never reused.
type Session struct {
	eng    engine.Engine
	id     string
	prompt string
	params engine.SamplingParams

	submitted atomic.Bool
	finished  atomic.Bool
	outputs   <-chan *engine.RequestOutput
	stop      context.CancelFunc

	cancelOnce sync.Once
	aborted    atomic.Bool
}

// New creates a session with a fresh "cmpl-" request id. Nothing is sent to
// the engine until Submit.
func New(eng engine.Engine, prompt string, params engine.SamplingParams) *Session {
	return &Session{
		eng:    eng,
		id:     types.NewRequestID(),
		prompt: prompt,
		params: params,
	}
}

// ID returns the request id used with the engine.
func (s *Session) ID() string { return s.id }

// Params returns the sampling parameters of the request.
func (s *Session) Params() engine.SamplingParams { return s.params }

// Finished reports whether the engine marked the request finished.
func (s *Session) Finished() bool { return s.finished.Load() }

// Aborted reports whether Cancel sent an abort to the engine.
func (s *Session) Aborted() bool { return s.aborted.Load() }

// Submit hands the request to the engine. It may be called once.
func (s *Session) Submit(ctx context.Context) (<-chan *engine.RequestOutput, error) {
	if !s.submitted.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubmitted
	}

	genCtx, stop := context.WithCancel(ctx)
	outputs, err := s.eng.Generate(genCtx, s.prompt, s.params, s.id)
	if err != nil {
		stop()
		// Nothing is running engine-side; make Cancel a no-op.
		s.cancelOnce.Do(func() {})
		return nil, fmt.Errorf("failed to submit %s: %w", s.id, err)
	}

	s.outputs = outputs
	s.stop = stop

	slog.DebugContext(ctx, "generation submitted",
		"request_id", s.id,
		"n", s.params.N,
		"best_of", s.params.BestOf,
		"max_tokens", s.params.MaxTokens,
	)
	return outputs, nil
}

// Next returns the next output snapshot. It returns io.EOF when the stream
// ended, ErrClientDisconnected when ctx ended first (the session is then
// cancelled), or the engine's error.
//
// Disconnect takes priority: a snapshot that arrives together with the
// cancellation is dropped.
func (s *Session) Next(ctx context.Context) (*engine.RequestOutput, error) {
	if s.outputs == nil {
		return nil, ErrNotSubmitted
	}
	if ctx.Err() != nil {
		return nil, s.disconnected(ctx)
	}

	select {
	case <-ctx.Done():
		return nil, s.disconnected(ctx)

	case ro, ok := <-s.outputs:
		if ctx.Err() != nil {
			return nil, s.disconnected(ctx)
		}
		if !ok {
			return nil, io.EOF
		}
		if ro.Err != nil {
			return nil, ro.Err
		}
		if ro.Finished {
			s.finished.Store(true)
		}
		return ro, nil
	}
}

func (s *Session) disconnected(ctx context.Context) error {
	slog.InfoContext(ctx, "client disconnected, aborting generation", "request_id", s.id)
	s.Cancel(ctx)
	return ErrClientDisconnected
}

// Cancel aborts the request in the engine. Only the first call has an
// effect, and it does not contact the engine when the request already
// finished or was never submitted. ctx may already be done; the abort runs
// on a detached context.
func (s *Session) Cancel(ctx context.Context) {
	s.cancelOnce.Do(func() {
		if s.stop != nil {
			defer s.stop()
		}
		if !s.submitted.Load() || s.finished.Load() {
			return
		}

		abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
		defer cancel()

		s.aborted.Store(true)
		if err := s.eng.Abort(abortCtx, s.id); err != nil {
			slog.WarnContext(ctx, "engine abort failed", "request_id", s.id, "error", err)
			return
		}
		slog.DebugContext(ctx, "generation aborted", "request_id", s.id)
	})
}
