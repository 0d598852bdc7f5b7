// Package queue reports the generation engine's backlog: how many sequence
// groups are running, waiting or swapped out. Autoscalers read it over
// GET /queue, and the Poller publishes it as Prometheus gauges.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/runpod/vllm/pkg/engine"
)

// State is the queue report served to autoscalers. Each num_*_seq entry is
// the sequence count of one sequence group in that state.
type State struct {
	// LastLoggingTime is the Unix time, in seconds, of the scheduler's last
	// activity.
	LastLoggingTime float64 `json:"last_logging_time" yaml:"last_logging_time"`

	// UnfinishedSequenceGroups counts running, waiting and swapped groups.
	UnfinishedSequenceGroups int `json:"unfinished_sequence_groups" yaml:"unfinished_sequence_groups"`

	NumRunningSeq []int `json:"num_running_seq" yaml:"num_running_seq"`
	NumWaitingSeq []int `json:"num_waiting_seq" yaml:"num_waiting_seq"`
	NumSwappedSeq []int `json:"num_swapped_seq" yaml:"num_swapped_seq"`
}

// LastActivity returns LastLoggingTime as a time.
func (s State) LastActivity() time.Time {
	if s.LastLoggingTime == 0 {
		return time.Time{}
	}
	sec := int64(s.LastLoggingTime)
	nsec := int64((s.LastLoggingTime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Introspector reads queue state from an engine.
type Introspector struct {
	eng engine.Engine
}

// NewIntrospector returns an introspector for eng.
func NewIntrospector(eng engine.Engine) *Introspector {
	return &Introspector{eng: eng}
}

// Snapshot returns the current queue state. It does not modify the engine.
func (i *Introspector) Snapshot(ctx context.Context) (State, error) {
	snap, err := i.eng.SchedulerSnapshot(ctx)
	if err != nil {
		return State{}, fmt.Errorf("failed to read scheduler snapshot: %w", err)
	}
	return FromSnapshot(snap), nil
}

// FromSnapshot converts an engine snapshot to a State. Empty lists encode
// as [] rather than null.
func FromSnapshot(snap *engine.SchedulerSnapshot) State {
	state := State{
		NumRunningSeq: nonNil(snap.Running),
		NumWaitingSeq: nonNil(snap.Waiting),
		NumSwappedSeq: nonNil(snap.Swapped),
	}
	state.UnfinishedSequenceGroups = len(state.NumRunningSeq) + len(state.NumWaitingSeq) + len(state.NumSwappedSeq)
	if !snap.LastActivity.IsZero() {
		state.LastLoggingTime = float64(snap.LastActivity.UnixNano()) / 1e9
	}
	return state
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return append([]int(nil), v...)
}
