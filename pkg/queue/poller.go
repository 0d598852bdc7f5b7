package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher receives every successful snapshot.
type Publisher interface {
	UpdateQueue(running, waiting, swapped []int, unfinishedGroups int, lastActivity time.Time)
	RecordQueuePollError()
}

// Poller takes a snapshot on a fixed interval and hands it to a Publisher.
// It also keeps the latest state so GET /queue can fall back to it when the
// engine is slow to answer.
type Poller struct {
	introspector *Introspector
	publisher    Publisher
	interval     time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	latest State
	at     time.Time
}

// NewPoller creates a poller. interval must be positive.
func NewPoller(introspector *Introspector, publisher Publisher, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		introspector: introspector,
		publisher:    publisher,
		interval:     interval,
		logger:       logger.With("component", "queue.poller"),
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("queue poller started", "interval", p.interval)
	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("queue poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll takes one snapshot and publishes it.
func (p *Poller) Poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	state, err := p.introspector.Snapshot(pollCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("queue poll failed", "error", err)
			if p.publisher != nil {
				p.publisher.RecordQueuePollError()
			}
		}
		return
	}

	p.mu.Lock()
	p.latest = state
	p.at = time.Now()
	p.mu.Unlock()

	if p.publisher != nil {
		p.publisher.UpdateQueue(state.NumRunningSeq, state.NumWaitingSeq, state.NumSwappedSeq,
			state.UnfinishedSequenceGroups, state.LastActivity())
	}
}

// Latest returns the last polled state and when it was taken. The time is
// zero before the first successful poll.
func (p *Poller) Latest() (State, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.at
}
