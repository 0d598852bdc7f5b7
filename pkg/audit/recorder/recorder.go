// Package recorder writes audit records off the request path.
package recorder

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/proxy"
)

const (
	defaultAsyncBuffer    = 1000
	defaultWriteTimeout   = 5 * time.Second
	defaultMaxFieldLength = 500
)

// Recorder turns finished requests into audit records and stores them from a
// background worker. It satisfies handlers.Recorder.
type Recorder struct {
	storage    audit.Storage
	config     config.RecorderConfig
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger

	dropped atomic.Int64
	failed  atomic.Int64
	now     func() time.Time
}

// New starts a recorder writing to storage. A nil cfg uses defaults.
func New(storage audit.Storage, cfg *config.RecorderConfig) *Recorder {
	var c config.RecorderConfig
	if cfg != nil {
		c = *cfg
	}
	if c.AsyncBuffer <= 0 {
		c.AsyncBuffer = defaultAsyncBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.MaxFieldLength <= 0 {
		c.MaxFieldLength = defaultMaxFieldLength
	}

	r := &Recorder{
		storage:    storage,
		config:     c,
		recordChan: make(chan *audit.Record, c.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
		now:        time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", c.AsyncBuffer,
		"write_timeout", c.WriteTimeout,
	)
	return r
}

// Record enqueues one request outcome. It never blocks: when the buffer is
// full or the recorder is closed the record is dropped.
func (r *Recorder) Record(ctx context.Context, req *proxy.RequestMetadata, resp *proxy.ResponseMetadata) {
	select {
	case <-r.done:
		r.dropped.Add(1)
		return
	default:
	}

	record := r.build(req, resp)

	select {
	case r.recordChan <- record:
	default:
		r.dropped.Add(1)
		r.logger.WarnContext(ctx, "audit buffer full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"buffer", r.config.AsyncBuffer,
		)
	}
}

// Dropped returns how many records were discarded without being written.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Failed returns how many storage writes returned an error.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// Close stops accepting records, writes what is buffered and waits for the
// worker to exit. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Debug("draining audit buffer", "pending_count", len(r.recordChan))
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}

// build copies everything it needs so the handler may reuse its metadata.
func (r *Recorder) build(req *proxy.RequestMetadata, resp *proxy.ResponseMetadata) *audit.Record {
	limit := r.config.MaxFieldLength

	record := &audit.Record{
		ID:           uuid.NewString(),
		RequestID:    resp.RequestID,
		RequestTime:  req.Timestamp,
		RecordedTime: r.now(),

		Endpoint:   req.Endpoint,
		Method:     req.Method,
		Path:       req.Path,
		Model:      TruncateString(req.Model, limit),
		User:       TruncateString(req.User, limit),
		RemoteAddr: req.RemoteAddr,
		UserAgent:  TruncateString(req.UserAgent, limit),
		Stream:     req.Stream,
		N:          req.N,
		MaxTokens:  req.MaxTokens,

		StatusCode:       resp.StatusCode,
		Status:           resp.Status(),
		Streamed:         resp.Streamed,
		Disconnected:     resp.Disconnected,
		FinishReasons:    slices.Clone(resp.FinishReasons),
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens(),
		Latency:          resp.Latency,
		TimeToFirstEvent: resp.TimeToFirstEvent,
	}
	if record.RequestID == "" {
		record.RequestID = req.RequestID
	}
	if resp.Error != nil {
		record.Error = TruncateString(resp.Error.Error(), limit)
	}
	return record
}
