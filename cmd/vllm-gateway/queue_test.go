package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/runpod/vllm/internal/enginetest"
	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/engine"
)

func TestPrintQueue_Text(t *testing.T) {
	eng := &enginetest.Fake{Snapshot: engine.SchedulerSnapshot{
		Running:      []int{1, 4},
		Waiting:      []int{2},
		LastActivity: time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC),
	}}

	cmd, out := testCommand()
	if err := printQueue(cmd, eng, time.Second, cli.FormatText); err != nil {
		t.Fatalf("printQueue() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"Unfinished groups:", "Running sequences:  5", "Waiting sequences:  2", "2026-04-01T08:30:00Z"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintQueue_JSON(t *testing.T) {
	eng := &enginetest.Fake{Snapshot: engine.SchedulerSnapshot{Swapped: []int{3}}}

	cmd, out := testCommand()
	if err := printQueue(cmd, eng, time.Second, cli.FormatJSON); err != nil {
		t.Fatalf("printQueue() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if got["swapped"] != float64(3) || got["unfinished_sequence_groups"] != float64(1) {
		t.Errorf("report = %v", got)
	}
	if _, ok := got["num_running_seq"]; !ok {
		t.Error("embedded queue state fields missing")
	}
}

// schedulerErrEngine fails every scheduler read.
type schedulerErrEngine struct{ *enginetest.Fake }

func (schedulerErrEngine) SchedulerSnapshot(context.Context) (*engine.SchedulerSnapshot, error) {
	return nil, errors.New("connection refused")
}

func TestPrintQueue_EngineError(t *testing.T) {
	eng := schedulerErrEngine{Fake: &enginetest.Fake{}}

	cmd, _ := testCommand()
	err := printQueue(cmd, eng, time.Second, cli.FormatText)

	var cmdErr *cli.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Command != "queue" {
		t.Errorf("printQueue() error = %v, want queue CommandError", err)
	}
}
