// Package retention prunes old audit records.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/config"
)

// Pruner enforces the retention policy on an audit store.
type Pruner struct {
	storage   audit.Storage
	config    config.RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner for storage.
func NewPruner(storage audit.Storage, cfg config.RetentionConfig) *Pruner {
	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes records older than Days, then the oldest records beyond
// MaxRecords. Either limit is skipped when zero. It returns the total
// number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("audit pruning completed",
			"total_deleted", total,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)

	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.Days, err)
	}
	p.logger.Debug("pruned records by age", "deleted_count", deleted, "cutoff_time", cutoff)
	return deleted, nil
}

// pruneByCount finds the newest record past the cap and deletes it along
// with everything older. Records sharing that exact timestamp go too.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	boundary, err := p.storage.Query(ctx, &audit.Query{
		SortBy:    "request_time",
		SortOrder: "desc",
		Offset:    int(p.config.MaxRecords),
		Limit:     1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find cutoff record: %w", err)
	}
	if len(boundary) == 0 {
		return 0, nil
	}

	cutoff := boundary[0].RequestTime
	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	p.logger.Debug("pruned records by count",
		"deleted_count", deleted,
		"previous_count", count,
		"max_records", p.config.MaxRecords,
	)
	return deleted, nil
}

// Start schedules pruning on the configured cron expression until ctx ends.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the schedule and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
