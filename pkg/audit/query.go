package audit

import (
	"errors"
	"fmt"
)

const (
	// DefaultLimit is the page size when a query sets none.
	DefaultLimit = 100

	// MaxLimit bounds one page.
	MaxLimit = 10000
)

// SortFields maps the accepted sort keys to their storage columns.
var SortFields = map[string]string{
	"request_time": "request_time_ns",
	"total_tokens": "total_tokens",
	"latency":      "latency_ns",
}

var validStatuses = map[string]bool{
	StatusOK:           true,
	StatusRejected:     true,
	StatusError:        true,
	StatusDisconnected: true,
}

// Validate reports the first invalid parameter of q.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if _, ok := SortFields[q.SortBy]; q.SortBy != "" && !ok {
		return NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && q.SortOrder != "asc" && q.SortOrder != "desc" {
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, errors.New("start_time must be before end_time"))
	}
	if q.MinTokens != nil && q.MaxTokens != nil && *q.MinTokens > *q.MaxTokens {
		return NewQueryError(q, errors.New("min_tokens must be <= max_tokens"))
	}
	if q.Status != "" && !validStatuses[q.Status] {
		return NewQueryError(q, fmt.Errorf("invalid status: %s (must be 'ok', 'rejected', 'error' or 'disconnected')", q.Status))
	}
	return nil
}

// ApplyDefaults fills in the page size and sort order.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "request_time"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// Matches reports whether r passes the filters of q. Pagination and
// sorting are not considered.
func (q *Query) Matches(r *Record) bool {
	switch {
	case q.StartTime != nil && r.RequestTime.Before(*q.StartTime):
		return false
	case q.EndTime != nil && r.RequestTime.After(*q.EndTime):
		return false
	case q.RequestID != "" && r.RequestID != q.RequestID:
		return false
	case q.Endpoint != "" && r.Endpoint != q.Endpoint:
		return false
	case q.Model != "" && r.Model != q.Model:
		return false
	case q.User != "" && r.User != q.User:
		return false
	case q.Status != "" && r.Status != q.Status:
		return false
	case q.MinTokens != nil && r.TotalTokens < *q.MinTokens:
		return false
	case q.MaxTokens != nil && r.TotalTokens > *q.MaxTokens:
		return false
	}
	return true
}
