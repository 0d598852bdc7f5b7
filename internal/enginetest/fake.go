// Package enginetest provides a scripted in-memory engine.Engine for tests.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/runpod/vllm/pkg/engine"
)

// Submission records one Generate call.
type Submission struct {
	RequestID string
	Prompt    string
	Params    engine.SamplingParams
}

// Fake is a scripted engine. Each Generate call replays Script in order.
// When Gate is non-nil every snapshot waits for a receive from Gate before it
// is sent, so tests can interleave disconnects with output delivery.
type Fake struct {
	// Script is the sequence of snapshots replayed for every request. The
	// RequestID field is filled in per request.
	Script []*engine.RequestOutput

	// Hold keeps the channel open after Script is exhausted until the
	// request is aborted or its context is cancelled.
	Hold bool

	// Gate, when set, releases one snapshot per receive.
	Gate chan struct{}

	// GenerateErr is returned by Generate.
	GenerateErr error

	// Meta is returned by ModelMetadata.
	Meta engine.ModelMetadata

	// Snapshot is returned by SchedulerSnapshot.
	Snapshot engine.SchedulerSnapshot

	// HealthErr is returned by HealthCheck.
	HealthErr error

	mu          sync.Mutex
	submissions []Submission
	aborts      []string
	cancels     map[string]context.CancelFunc
}

var _ engine.Engine = (*Fake)(nil)

// Generate replays Script for requestID.
func (f *Fake) Generate(ctx context.Context, prompt string, params engine.SamplingParams, requestID string) (<-chan *engine.RequestOutput, error) {
	if f.GenerateErr != nil {
		return nil, f.GenerateErr
	}

	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	f.submissions = append(f.submissions, Submission{RequestID: requestID, Prompt: prompt, Params: params})
	if f.cancels == nil {
		f.cancels = make(map[string]context.CancelFunc)
	}
	f.cancels[requestID] = cancel
	f.mu.Unlock()

	out := make(chan *engine.RequestOutput)
	go func() {
		defer close(out)
		defer cancel()

		for _, ro := range f.Script {
			if f.Gate != nil {
				select {
				case <-f.Gate:
				case <-ctx.Done():
					return
				}
			}

			cp := *ro
			cp.RequestID = requestID
			select {
			case out <- &cp:
			case <-ctx.Done():
				return
			}
		}

		if f.Hold {
			<-ctx.Done()
		}
	}()

	return out, nil
}

// Abort records the call and stops the matching stream.
func (f *Fake) Abort(_ context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.aborts = append(f.aborts, requestID)
	if cancel, ok := f.cancels[requestID]; ok {
		cancel()
	}
	return nil
}

// ModelMetadata returns Meta.
func (f *Fake) ModelMetadata(context.Context) (*engine.ModelMetadata, error) {
	meta := f.Meta
	return &meta, nil
}

// SchedulerSnapshot returns Snapshot.
func (f *Fake) SchedulerSnapshot(context.Context) (*engine.SchedulerSnapshot, error) {
	snap := f.Snapshot
	return &snap, nil
}

// HealthCheck returns HealthErr.
func (f *Fake) HealthCheck(context.Context) error {
	return f.HealthErr
}

// Close is a no-op.
func (f *Fake) Close() error {
	return nil
}

// Submissions returns a copy of all Generate calls.
func (f *Fake) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Submission(nil), f.submissions...)
}

// Aborts returns a copy of all aborted request ids, in call order.
func (f *Fake) Aborts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborts...)
}

// AbortCount returns how many times requestID was aborted.
func (f *Fake) AbortCount(requestID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, id := range f.aborts {
		if id == requestID {
			n++
		}
	}
	return n
}

// WaitForAborts blocks until at least n aborts were recorded or timeout
// elapses, and reports whether the count was reached.
func (f *Fake) WaitForAborts(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(f.Aborts()) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return len(f.Aborts()) >= n
}

// Growing builds a script in which every index grows by one piece per
// snapshot. pieces[i] are the fragments for index i; each fragment is one
// token whose id is 100*index+position. The last snapshot of each index
// carries finishReason, and the last snapshot overall is marked finished.
func Growing(promptTokens []int, finishReason string, pieces ...[]string) []*engine.RequestOutput {
	longest := 0
	for _, p := range pieces {
		if len(p) > longest {
			longest = len(p)
		}
	}

	var script []*engine.RequestOutput
	texts := make([]string, len(pieces))
	ids := make([][]int, len(pieces))

	for step := 0; step < longest; step++ {
		ro := &engine.RequestOutput{PromptTokenIDs: promptTokens}
		for i, p := range pieces {
			if step >= len(p) {
				continue
			}
			texts[i] += p[step]
			ids[i] = append(ids[i], 100*i+step)

			out := engine.CompletionOutput{
				Index:    i,
				Text:     texts[i],
				TokenIDs: append([]int(nil), ids[i]...),
			}
			if step == len(p)-1 {
				out.FinishReason = finishReason
			}
			ro.Outputs = append(ro.Outputs, out)
		}
		script = append(script, ro)
	}

	if len(script) > 0 {
		script[len(script)-1].Finished = true
	}
	return script
}
