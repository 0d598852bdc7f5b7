package audit

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestQuery_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"empty", Query{}, false},
		{"full", Query{Limit: 10, Offset: 5, SortBy: "latency", SortOrder: "asc", Status: StatusDisconnected}, false},
		{"negative limit", Query{Limit: -1}, true},
		{"limit too large", Query{Limit: MaxLimit + 1}, true},
		{"negative offset", Query{Offset: -1}, true},
		{"bad sort field", Query{SortBy: "cost"}, true},
		{"bad sort order", Query{SortOrder: "up"}, true},
		{"inverted time range", Query{StartTime: &now, EndTime: &earlier}, true},
		{"inverted token range", Query{MinTokens: intPtr(10), MaxTokens: intPtr(5)}, true},
		{"unknown status", Query{Status: "blocked"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qe *QueryError
				if !errors.As(err, &qe) {
					t.Errorf("error %T is not a *QueryError", err)
				}
			}
		})
	}
}

func TestQuery_ApplyDefaults(t *testing.T) {
	q := Query{}
	q.ApplyDefaults()
	if q.Limit != DefaultLimit || q.SortBy != "request_time" || q.SortOrder != "desc" {
		t.Errorf("ApplyDefaults() = %+v", q)
	}

	q = Query{Limit: 5, SortBy: "latency", SortOrder: "asc"}
	q.ApplyDefaults()
	if q.Limit != 5 || q.SortBy != "latency" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults() overwrote explicit values: %+v", q)
	}
}

func TestQuery_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		RequestID:   "cmpl-1",
		RequestTime: base,
		Endpoint:    "chat",
		Model:       "llama",
		User:        "alice",
		Status:      StatusOK,
		TotalTokens: 42,
	}
	before := base.Add(-time.Minute)
	after := base.Add(time.Minute)

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"no filters", Query{}, true},
		{"time window", Query{StartTime: &before, EndTime: &after}, true},
		{"inclusive end", Query{EndTime: &base}, true},
		{"starts after", Query{StartTime: &after}, false},
		{"ends before", Query{EndTime: &before}, false},
		{"request id", Query{RequestID: "cmpl-1"}, true},
		{"other request id", Query{RequestID: "cmpl-2"}, false},
		{"endpoint", Query{Endpoint: "completion"}, false},
		{"model", Query{Model: "llama"}, true},
		{"user", Query{User: "bob"}, false},
		{"status", Query{Status: StatusError}, false},
		{"min tokens", Query{MinTokens: intPtr(42)}, true},
		{"max tokens", Query{MaxTokens: intPtr(41)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(rec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
