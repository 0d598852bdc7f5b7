// Package remote implements engine.Engine over HTTP against an engine worker
// process.
//
// The worker exposes:
//
//	POST /generate      {"request_id","prompt","sampling_params"} -> NDJSON stream of RequestOutput
//	POST /abort         {"request_id"}
//	GET  /model_config  -> ModelMetadata
//	GET  /scheduler     -> {"running","waiting","swapped","last_logging_time"}
//	GET  /health
//
// Generation is submitted exactly once. Every other call is idempotent and is
// retried with exponential backoff on transport errors and 5xx responses.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/runpod/vllm/pkg/engine"
)

// Config contains the remote engine client configuration.
type Config struct {
	// BaseURL is the worker's address, e.g. "http://127.0.0.1:8001".
	BaseURL string

	// Timeout bounds each non-streaming call.
	Timeout time.Duration

	// MaxRetries is the number of retries for idempotent calls.
	MaxRetries int

	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client is an engine.Engine backed by an engine worker's HTTP API.
type Client struct {
	cfg     Config
	baseURL string

	// unary carries the per-call timeout; stream has none because generation
	// lasts as long as the request context.
	unary  *http.Client
	stream *http.Client
}

var _ engine.Engine = (*Client)(nil)

// New creates a remote engine client.
func New(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		unary:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		stream:  &http.Client{Transport: transport},
	}
}

type generateRequest struct {
	RequestID      string                `json:"request_id"`
	Prompt         string                `json:"prompt"`
	SamplingParams engine.SamplingParams `json:"sampling_params"`
}

type abortRequest struct {
	RequestID string `json:"request_id"`
}

type schedulerResponse struct {
	Running         []int   `json:"running"`
	Waiting         []int   `json:"waiting"`
	Swapped         []int   `json:"swapped"`
	LastLoggingTime float64 `json:"last_logging_time"`
}

// Generate submits a generation request and streams its outputs.
func (c *Client) Generate(ctx context.Context, prompt string, params engine.SamplingParams, requestID string) (<-chan *engine.RequestOutput, error) {
	body, err := sonic.Marshal(generateRequest{
		RequestID:      requestID,
		Prompt:         prompt,
		SamplingParams: params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, &engine.Error{Op: "generate", Message: "request failed", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &engine.Error{Op: "generate", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	out := make(chan *engine.RequestOutput)
	go pump(ctx, newStreamReader(resp.Body), out)

	return out, nil
}

// pump forwards decoded outputs until the stream ends, fails, or ctx is done.
func pump(ctx context.Context, sr *streamReader, out chan<- *engine.RequestOutput) {
	defer close(out)
	defer sr.Close()

	for {
		ro, err := sr.Read(ctx)
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ro = &engine.RequestOutput{Err: err}
		}

		select {
		case out <- ro:
		case <-ctx.Done():
			return
		}

		if ro.Err != nil || ro.Finished {
			return
		}
	}
}

// Abort stops generation for requestID.
func (c *Client) Abort(ctx context.Context, requestID string) error {
	return c.doJSON(ctx, "abort", http.MethodPost, "/abort", abortRequest{RequestID: requestID}, nil)
}

// ModelMetadata fetches the model's context-window fields.
func (c *Client) ModelMetadata(ctx context.Context) (*engine.ModelMetadata, error) {
	var meta engine.ModelMetadata
	if err := c.doJSON(ctx, "model_config", http.MethodGet, "/model_config", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SchedulerSnapshot fetches the engine backlog.
func (c *Client) SchedulerSnapshot(ctx context.Context) (*engine.SchedulerSnapshot, error) {
	var sr schedulerResponse
	if err := c.doJSON(ctx, "scheduler", http.MethodGet, "/scheduler", nil, &sr); err != nil {
		return nil, err
	}

	snap := &engine.SchedulerSnapshot{
		Running: sr.Running,
		Waiting: sr.Waiting,
		Swapped: sr.Swapped,
	}
	if sr.LastLoggingTime > 0 {
		sec, frac := math.Modf(sr.LastLoggingTime)
		snap.LastActivity = time.Unix(int64(sec), int64(frac*1e9))
	}
	return snap, nil
}

// HealthCheck probes the worker's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.unary.CloseIdleConnections()
	return nil
}

// doJSON performs an idempotent call with retries and decodes the response.
func (c *Client) doJSON(ctx context.Context, op, method, path string, reqBody, respBody any) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = sonic.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
	}

	resp, err := c.doRequest(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &engine.ParseError{Op: op, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if respBody != nil && len(data) > 0 {
		if err := sonic.Unmarshal(data, respBody); err != nil {
			return &engine.ParseError{Op: op, Raw: truncate(string(data), 256), Cause: err}
		}
	}
	return nil
}

// doRequest retries transport errors and 5xx responses with exponential
// backoff. 4xx responses are returned immediately.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			slog.DebugContext(ctx, "retrying engine request",
				"op", op,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.unary.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &engine.Error{Op: op, Message: "request failed", Cause: err}
			slog.WarnContext(ctx, "engine request failed, will retry",
				"op", op,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		e := &engine.Error{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
		if !e.Retryable() {
			return nil, e
		}
		lastErr = e

		slog.WarnContext(ctx, "engine returned error status, will retry",
			"op", op,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
