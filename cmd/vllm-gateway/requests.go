package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/audit/export"
	"github.com/runpod/vllm/pkg/audit/retention"
	"github.com/runpod/vllm/pkg/audit/storage"
	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/config"
)

var requestsFlags struct {
	since     string
	until     string
	requestID string
	endpoint  string
	model     string
	user      string
	status    string
	minTokens int
	maxTokens int
	limit     int
	offset    int
	sortBy    string
	sortOrder string
	format    string
	all       bool
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Query the request audit log",
	Long: `Query the request audit log written by a running gateway.

Time bounds accept either an RFC 3339 timestamp or a duration counted back
from now ("90m", "24h").

Examples:
  # The 100 most recent requests
  vllm-gateway requests

  # Failed requests from the last hour as JSON
  vllm-gateway requests --since 1h --status error --format json

  # Every chat request of one model as CSV
  vllm-gateway requests --endpoint chat --model facebook/opt-125m --all --format csv > chat.csv

  # The slowest completions
  vllm-gateway requests --endpoint completion --sort latency --limit 10`,
	RunE: queryRequests,
}

var requestsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete audit records older than audit.retention.days and trim the log
to audit.retention.max_records, as the scheduled pruning would.`,
	RunE: pruneRequests,
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsPruneCmd)

	f := requestsCmd.Flags()
	f.StringVar(&requestsFlags.since, "since", "", "only requests at or after this time (RFC 3339 or duration)")
	f.StringVar(&requestsFlags.until, "until", "", "only requests at or before this time (RFC 3339 or duration)")
	f.StringVar(&requestsFlags.requestID, "request-id", "", "filter by request id")
	f.StringVar(&requestsFlags.endpoint, "endpoint", "", "filter by endpoint: chat, completion")
	f.StringVar(&requestsFlags.model, "model", "", "filter by requested model")
	f.StringVar(&requestsFlags.user, "user", "", "filter by the request's user field")
	f.StringVar(&requestsFlags.status, "status", "", "filter by status: ok, rejected, error, disconnected")
	f.IntVar(&requestsFlags.minTokens, "min-tokens", -1, "minimum total tokens")
	f.IntVar(&requestsFlags.maxTokens, "max-tokens", -1, "maximum total tokens")
	f.IntVar(&requestsFlags.limit, "limit", audit.DefaultLimit, "maximum records to return")
	f.IntVar(&requestsFlags.offset, "offset", 0, "records to skip")
	f.StringVar(&requestsFlags.sortBy, "sort", "request_time", "sort by: request_time, total_tokens, latency")
	f.StringVar(&requestsFlags.sortOrder, "order", "desc", "sort order: asc, desc")
	f.StringVar(&requestsFlags.format, "format", export.FormatTable, "output format: table, json, csv")
	f.BoolVar(&requestsFlags.all, "all", false, "return every matching record, ignoring --limit and --offset")
}

func queryRequests(cmd *cobra.Command, args []string) error {
	query, err := buildRequestsQuery(time.Now())
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	exporter, err := export.New(requestsFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	store, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("requests", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	var records []*audit.Record
	if requestsFlags.all {
		records, err = fetchAll(ctx, store, query, cmd.ErrOrStderr())
	} else {
		records, err = store.Query(ctx, query)
	}
	if err != nil {
		return cli.NewCommandError("requests", err)
	}

	if err := exporter.Export(ctx, records, cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("requests", err)
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d records\n", len(records))
	}
	return nil
}

func pruneRequests(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	store, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("requests prune", err)
	}
	defer store.Close()

	deleted, err := retention.NewPruner(store, cfg.Audit.Retention).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("requests prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records\n", deleted)
	return nil
}

// openAuditStorage opens the configured backend for reading. The memory
// backend only lives inside a running gateway, so there is nothing to read.
func openAuditStorage(cfg *config.Config) (audit.Storage, error) {
	if cfg.Audit.Backend == "memory" {
		return nil, fmt.Errorf("audit backend %q is not persistent; configure audit.backend: sqlite", cfg.Audit.Backend)
	}
	return storage.New(&cfg.Audit)
}

// buildRequestsQuery turns the requests flags into a validated query.
func buildRequestsQuery(now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		RequestID: requestsFlags.requestID,
		Endpoint:  requestsFlags.endpoint,
		Model:     requestsFlags.model,
		User:      requestsFlags.user,
		Status:    requestsFlags.status,
		Limit:     requestsFlags.limit,
		Offset:    requestsFlags.offset,
		SortBy:    requestsFlags.sortBy,
		SortOrder: requestsFlags.sortOrder,
	}

	if requestsFlags.since != "" {
		t, err := parseTimeFlag(requestsFlags.since, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		q.StartTime = &t
	}
	if requestsFlags.until != "" {
		t, err := parseTimeFlag(requestsFlags.until, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		q.EndTime = &t
	}
	if requestsFlags.minTokens >= 0 {
		v := requestsFlags.minTokens
		q.MinTokens = &v
	}
	if requestsFlags.maxTokens >= 0 {
		v := requestsFlags.maxTokens
		q.MaxTokens = &v
	}
	if requestsFlags.all {
		q.Limit = audit.MaxLimit
		q.Offset = 0
	}

	q.ApplyDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration before now.
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration %q must be positive", s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither a duration nor an RFC 3339 time", s)
	}
	return t, nil
}

// fetchAll pages through every record matching q, reporting progress on w.
func fetchAll(ctx context.Context, store audit.Storage, q *audit.Query, w io.Writer) ([]*audit.Record, error) {
	total, err := store.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	progress := cli.NewProgressReporter(w, "Reading")
	progress.Start(total)

	records := make([]*audit.Record, 0, total)
	page := *q
	for int64(len(records)) < total {
		page.Offset = len(records)
		batch, err := store.Query(ctx, &page)
		if err != nil {
			progress.Error(err)
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		records = append(records, batch...)
		progress.Add(int64(len(batch)))
	}

	progress.Finish()
	return records, nil
}
