package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Exporting").(*SimpleProgress)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.Start(200)
	clock = clock.Add(2 * time.Second)
	p.Add(100)

	out := buf.String()
	if !strings.Contains(out, "Exporting [") {
		t.Errorf("missing label: %q", out)
	}
	if !strings.Contains(out, "50.0% (100/200) 50.0 records/s") {
		t.Errorf("unexpected progress line: %q", out)
	}

	p.Add(500)
	p.Finish()
	if !strings.HasSuffix(buf.String(), "(200/200) 100.0 records/s\n") {
		t.Errorf("Finish() output = %q", buf.String())
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Exporting")

	p.Start(0)
	p.Add(3)
	p.Finish()

	if buf.Len() != 0 {
		t.Errorf("empty export should print nothing, got %q", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Exporting")

	p.Start(10)
	p.Error(errors.New("database is locked"))

	if !strings.Contains(buf.String(), "Error: database is locked") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "Exporting")
	p.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Add(1)
			}
		}()
	}
	wg.Wait()
	p.Finish()

	if !strings.Contains(buf.String(), "(1000/1000)") {
		t.Errorf("final line missing: %q", buf.String()[max(0, buf.Len()-80):])
	}
}
