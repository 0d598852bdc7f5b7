package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/runpod/vllm/pkg/session"
)

// Sink receives translated events in order.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, ev Event) error { return f(ctx, ev) }

// SinkError wraps a failure to deliver an event to the client.
type SinkError struct {
	Err error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("failed to send event: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// Pump drives a submitted session through tr into sink until the terminator
// is sent, the client disconnects, the sink fails or the engine fails. The
// session is cancelled on every return path; after a natural finish that
// does not reach the engine.
//
// Errors: session.ErrClientDisconnected, *SinkError, *ProtocolError or the
// engine's error.
func Pump(ctx context.Context, sess *session.Session, tr *Translator, sink Sink) error {
	defer sess.Cancel(ctx)

	send := func(events []Event) error {
		for _, ev := range events {
			if err := sink.Send(ctx, ev); err != nil {
				return &SinkError{Err: err}
			}
		}
		return nil
	}

	if err := send(tr.Start()); err != nil {
		return err
	}

	for !tr.Done() {
		ro, err := sess.Next(ctx)
		if errors.Is(err, io.EOF) {
			if !sess.Finished() {
				return &ProtocolError{Index: -1, Reason: "output stream ended before the request finished"}
			}
			return send(tr.Close())
		}
		if err != nil {
			return err
		}

		events, terr := tr.Translate(ro)
		if err := send(events); err != nil {
			return err
		}
		if terr != nil {
			return terr
		}
	}
	return nil
}
