package audit

import (
	"context"
	"io"
	"time"
)

// Outcome labels stored in Record.Status.
const (
	StatusOK           = "ok"
	StatusRejected     = "rejected"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

// Record is the audit entry for one generation request.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // engine request id ("cmpl-..."), empty if never submitted

	// Timestamps
	RequestTime  time.Time `json:"request_time"`
	RecordedTime time.Time `json:"recorded_time"`

	// Request
	Endpoint   string `json:"endpoint"` // "chat" or "completion"
	Method     string `json:"method"`
	Path       string `json:"path"`
	Model      string `json:"model"`
	User       string `json:"user,omitempty"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	Stream     bool   `json:"stream"` // stream requested by the client
	N          int    `json:"n"`
	MaxTokens  int    `json:"max_tokens"`

	// Outcome
	StatusCode       int           `json:"status_code"`
	Status           string        `json:"status"`
	Streamed         bool          `json:"streamed"` // sent as live SSE
	Disconnected     bool          `json:"disconnected"`
	FinishReasons    []string      `json:"finish_reasons"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	Latency          time.Duration `json:"latency"`
	TimeToFirstEvent time.Duration `json:"time_to_first_event"`
	Error            string        `json:"error,omitempty"`
}

// Query selects audit records. Zero fields do not filter.
type Query struct {
	// Time range, inclusive
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Model     string `json:"model,omitempty"`
	User      string `json:"user,omitempty"`
	Status    string `json:"status,omitempty"`

	// Token thresholds on TotalTokens
	MinTokens *int `json:"min_tokens,omitempty"`
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "request_time", "total_tokens", "latency"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching q, sorted and paginated. It
	// returns an empty slice when nothing matches.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes the records matching q, ignoring pagination, and
	// returns how many were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases the backend.
	Close() error
}

// Exporter writes records in one output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
