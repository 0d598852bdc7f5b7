// Package export writes audit records for humans and tools.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"

	"github.com/runpod/vllm/pkg/audit"
)

// Formats accepted by New.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// New returns the exporter for format.
func New(format string) (audit.Exporter, error) {
	switch format {
	case FormatTable, "":
		return &TableExporter{}, nil
	case FormatJSON:
		return &JSONExporter{Pretty: true}, nil
	case FormatCSV:
		return &CSVExporter{IncludeHeader: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or csv)", format)
	}
}

// JSONExporter writes records as one JSON array.
type JSONExporter struct {
	Pretty bool
}

// Export implements audit.Exporter.
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if records == nil {
		records = []*audit.Record{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = sonic.ConfigStd.MarshalIndent(records, "", "  ")
	} else {
		data, err = sonic.ConfigStd.Marshal(records)
	}
	if err != nil {
		return audit.NewExportError(FormatJSON, len(records), err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return audit.NewExportError(FormatJSON, len(records), err)
	}
	return nil
}

// CSVExporter writes one row per record.
type CSVExporter struct {
	IncludeHeader bool
}

var csvHeader = []string{
	"id", "request_id", "request_time", "endpoint", "model", "user", "remote_addr",
	"stream", "streamed", "n", "max_tokens", "status_code", "status", "disconnected",
	"finish_reasons", "prompt_tokens", "completion_tokens", "total_tokens",
	"latency_ms", "time_to_first_event_ms", "error",
}

// Export implements audit.Exporter.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return audit.NewExportError(FormatCSV, len(records), err)
		}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			r.ID,
			r.RequestID,
			formatTime(r.RequestTime),
			r.Endpoint,
			r.Model,
			r.User,
			r.RemoteAddr,
			strconv.FormatBool(r.Stream),
			strconv.FormatBool(r.Streamed),
			strconv.Itoa(r.N),
			strconv.Itoa(r.MaxTokens),
			strconv.Itoa(r.StatusCode),
			r.Status,
			strconv.FormatBool(r.Disconnected),
			strings.Join(r.FinishReasons, ";"),
			strconv.Itoa(r.PromptTokens),
			strconv.Itoa(r.CompletionTokens),
			strconv.Itoa(r.TotalTokens),
			strconv.FormatInt(r.Latency.Milliseconds(), 10),
			strconv.FormatInt(r.TimeToFirstEvent.Milliseconds(), 10),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return audit.NewExportError(FormatCSV, len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError(FormatCSV, len(records), err)
	}
	return nil
}

// TableExporter writes an aligned summary table for terminals.
type TableExporter struct{}

// Export implements audit.Exporter.
func (e *TableExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREQUEST ID\tENDPOINT\tMODEL\tSTATUS\tCODE\tTOKENS\tFINISH\tLATENCY")

	for _, r := range records {
		finish := strings.Join(r.FinishReasons, ",")
		if finish == "" {
			finish = "-"
		}
		requestID := r.RequestID
		if requestID == "" {
			requestID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			formatTime(r.RequestTime),
			requestID,
			r.Endpoint,
			r.Model,
			r.Status,
			r.StatusCode,
			r.PromptTokens,
			r.CompletionTokens,
			finish,
			r.Latency.Round(time.Millisecond),
		)
	}

	if err := tw.Flush(); err != nil {
		return audit.NewExportError(FormatTable, len(records), err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
