package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations such as a
// paged audit export.
type ProgressReporter interface {
	Start(total int64)
	Add(n int64)
	Finish()
	Error(err error)
}

// SimpleProgress renders a single-line progress bar.
type SimpleProgress struct {
	mu      sync.Mutex
	label   string
	total   int64
	current int64
	started time.Time
	writer  io.Writer
	now     func() time.Time
}

const progressBarWidth = 30

// NewProgressReporter creates a progress reporter that writes to w, which
// defaults to os.Stderr so it never mixes with exported data on stdout.
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		label:  label,
		writer: w,
		now:    time.Now,
	}
}

// Start initializes the reporter with the expected number of items.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = p.now()

	p.render()
}

// Add advances the reporter by n items.
func (p *SimpleProgress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	ratio := float64(p.current) / float64(p.total)
	filled := int(float64(progressBarWidth) * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)

	rate := 0.0
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.writer, "\r%s [%s] %.1f%% (%d/%d) %.1f records/s",
		p.label, bar, ratio*100, p.current, p.total, rate)
}
