package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpod/vllm/pkg/cli"
	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/engine/remote"
	"github.com/runpod/vllm/pkg/queue"
)

var queueFlags struct {
	engineURL string
	format    string
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the engine queue",
	Long: `Read the engine scheduler and print how many sequence groups are
running, waiting and swapped out. This is the same report the gateway serves
at GET /queue.

Examples:
  # Show the queue of the configured engine
  vllm-gateway queue

  # Query another engine and print JSON
  vllm-gateway queue --engine-url http://10.0.0.7:8001 --format json`,
	RunE: showQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)

	queueCmd.Flags().StringVar(&queueFlags.engineURL, "engine-url", "", "override the engine base URL")
	queueCmd.Flags().StringVar(&queueFlags.format, "format", "text", "output format: text, json, yaml")
}

// queueReport is queue.State with sequence totals.
type queueReport struct {
	queue.State `yaml:",inline"`

	Running      int       `json:"running" yaml:"running"`
	Waiting      int       `json:"waiting" yaml:"waiting"`
	Swapped      int       `json:"swapped" yaml:"swapped"`
	LastActivity time.Time `json:"last_activity" yaml:"last_activity"`
}

func newQueueReport(state queue.State) queueReport {
	return queueReport{
		State:        state,
		Running:      sum(state.NumRunningSeq),
		Waiting:      sum(state.NumWaitingSeq),
		Swapped:      sum(state.NumSwappedSeq),
		LastActivity: state.LastActivity().UTC(),
	}
}

func (r queueReport) Describe() []cli.Field {
	last := "never"
	if !r.LastActivity.IsZero() {
		last = r.LastActivity.Format(time.RFC3339)
	}
	return []cli.Field{
		{Label: "Unfinished groups", Value: r.UnfinishedSequenceGroups},
		{Label: "Running sequences", Value: r.Running},
		{Label: "Waiting sequences", Value: r.Waiting},
		{Label: "Swapped sequences", Value: r.Swapped},
		{Label: "Last activity", Value: last},
	}
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func showQueue(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(queueFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	cfg, err := loadConfig(func(c *config.Config) {
		if queueFlags.engineURL != "" {
			c.Engine.BaseURL = queueFlags.engineURL
		}
	})
	if err != nil {
		return err
	}

	eng := remote.New(remote.Config{
		BaseURL:      cfg.Engine.BaseURL,
		Timeout:      cfg.Engine.Timeout,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: cfg.Engine.RetryBackoff,
	})
	defer eng.Close()

	return printQueue(cmd, eng, cfg.Engine.Timeout, format)
}

func printQueue(cmd *cobra.Command, eng engine.Engine, timeout time.Duration, format cli.OutputFormat) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	state, err := queue.NewIntrospector(eng).Snapshot(ctx)
	if err != nil {
		return cli.NewCommandError("queue", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), newQueueReport(state))
}
