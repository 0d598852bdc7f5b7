package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runpod/vllm/pkg/engine"
)

func newTestClient(url string, retries int) *Client {
	return New(Config{
		BaseURL:      url,
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
	})
}

func TestClient_GenerateStreamsOutputs(t *testing.T) {
	lines := []string{
		`{"request_id":"cmpl-1","prompt_token_ids":[1,2],"outputs":[{"index":0,"text":"Hel","token_ids":[10]}]}`,
		``,
		`{"request_id":"cmpl-1","prompt_token_ids":[1,2],"outputs":[{"index":0,"text":"Hello","token_ids":[10,11],"finish_reason":"stop"}],"finished":true}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}

		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body.RequestID != "cmpl-1" || body.Prompt != "Hi" || body.SamplingParams.MaxTokens != 16 {
			t.Errorf("unexpected body %+v", body)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0)
	ch, err := c.Generate(context.Background(), "Hi", engine.SamplingParams{N: 1, BestOf: 1, MaxTokens: 16}, "cmpl-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var got []*engine.RequestOutput
	for ro := range ch {
		if ro.Err != nil {
			t.Fatalf("unexpected stream error: %v", ro.Err)
		}
		got = append(got, ro)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(got))
	}
	if got[1].Outputs[0].Text != "Hello" || !got[1].Finished {
		t.Errorf("unexpected final output %+v", got[1])
	}
	if got[1].Outputs[0].FinishReason != "stop" {
		t.Errorf("finish reason = %q", got[1].Outputs[0].FinishReason)
	}
}

func TestClient_GenerateMalformedLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"request_id":"x","outputs":[]}`)
		fmt.Fprintln(w, `not json`)
	}))
	defer server.Close()

	ch, err := newTestClient(server.URL, 0).Generate(context.Background(), "p", engine.SamplingParams{}, "x")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var last *engine.RequestOutput
	for ro := range ch {
		last = ro
	}

	var perr *engine.ParseError
	if last == nil || !errors.As(last.Err, &perr) {
		t.Fatalf("expected final ParseError, got %+v", last)
	}
}

func TestClient_GenerateRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).Generate(context.Background(), "p", engine.SamplingParams{}, "x")

	var eerr *engine.Error
	if !errors.As(err, &eerr) || eerr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 engine error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("generate must not be retried, got %d calls", calls.Load())
	}
}

func TestClient_GenerateContextCancelClosesChannel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"request_id":"x","outputs":[{"index":0,"text":"a","token_ids":[1]}]}`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := newTestClient(server.URL, 0).Generate(ctx, "p", engine.SamplingParams{}, "x")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if ro := <-ch; ro == nil || ro.Outputs[0].Text != "a" {
		t.Fatalf("unexpected first output %+v", ro)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A value racing the cancellation is acceptable; the channel
			// must still close.
			<-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancellation")
	}
}

func TestClient_AbortRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body abortRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RequestID != "cmpl-9" {
			t.Errorf("request id = %q", body.RequestID)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestClient(server.URL, 3).Abort(context.Background(), "cmpl-9"); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer server.Close()

	err := newTestClient(server.URL, 3).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_ModelMetadataAndScheduler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/model_config", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"max_position_embeddings":4096}`)
	})
	mux.HandleFunc("/scheduler", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"running":[1,4],"waiting":[1],"swapped":[],"last_logging_time":1700000000.5}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server.URL, 0)

	meta, err := c.ModelMetadata(context.Background())
	if err != nil {
		t.Fatalf("ModelMetadata failed: %v", err)
	}
	if meta.MaxPositionEmbeddings == nil || *meta.MaxPositionEmbeddings != 4096 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.MaxSequenceLength != nil || meta.SeqLength != nil {
		t.Errorf("absent fields must stay nil: %+v", meta)
	}

	snap, err := c.SchedulerSnapshot(context.Background())
	if err != nil {
		t.Fatalf("SchedulerSnapshot failed: %v", err)
	}
	if len(snap.Running) != 2 || snap.Running[1] != 4 || len(snap.Waiting) != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if want := time.Unix(1700000000, 500000000); !snap.LastActivity.Equal(want) {
		t.Errorf("last activity = %v, want %v", snap.LastActivity, want)
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"max_position_embeddings":`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).ModelMetadata(context.Background())
	var perr *engine.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
