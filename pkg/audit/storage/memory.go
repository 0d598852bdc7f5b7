package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/runpod/vllm/pkg/audit"
)

// MemoryStorage keeps records in a map. Records are lost on restart.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query returns copies of the matching records.
func (s *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	results := make([]*audit.Record, 0)
	for _, record := range s.records {
		if q.Matches(record) {
			results = append(results, copyRecord(record))
		}
	}
	s.mu.RUnlock()

	sortRecords(results, q.SortBy, q.SortOrder)

	start := min(q.Offset, len(results))
	results = results[start:]
	if q.Limit > 0 && q.Limit < len(results) {
		results = results[:q.Limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if q.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if q.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func copyRecord(r *audit.Record) *audit.Record {
	c := *r
	c.FinishReasons = slices.Clone(r.FinishReasons)
	return &c
}

// sortRecords orders records the way the SQLite backend does. Ties are
// broken by id so pagination is stable.
func sortRecords(records []*audit.Record, sortBy, order string) {
	key := func(r *audit.Record) int64 {
		switch sortBy {
		case "total_tokens":
			return int64(r.TotalTokens)
		case "latency":
			return int64(r.Latency)
		default:
			return r.RequestTime.UnixNano()
		}
	}

	slices.SortFunc(records, func(a, b *audit.Record) int {
		c := cmp.Compare(key(a), key(b))
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order != "asc" {
			c = -c
		}
		return c
	})
}
