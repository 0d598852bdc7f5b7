package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/runpod/vllm/pkg/length"
	"github.com/runpod/vllm/pkg/prompt"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/session"
)

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSONResponse(rec, http.StatusOK, types.NewUsage(3, 4)); err != nil {
		t.Fatal(err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var usage types.UsageInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &usage); err != nil {
		t.Fatal(err)
	}
	if usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteErrorResponse(rec, types.ModelNotFound("gpt-4")); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["object"] != "error" || body["type"] != "invalid_request_error" {
		t.Errorf("body = %v", body)
	}
	if body["message"] != "The model `gpt-4` does not exist." {
		t.Errorf("message = %v", body["message"])
	}
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	if w.Started() {
		t.Fatal("writer must not start before the first frame")
	}

	if err := w.WriteEvent(map[string]string{"text": "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteDone(); err != nil {
		t.Fatal(err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if !rec.Flushed {
		t.Error("expected flush")
	}
	want := "data: {\"text\":\"hi\"}\n\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
	if w.Frames() != 2 {
		t.Errorf("frames = %d", w.Frames())
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   types.ErrorKind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "api error passthrough",
			err:        types.InvalidRequest("echo is not currently supported"),
			wantKind:   types.KindInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "echo is not currently supported",
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("sampling: %w", types.ModelNotFound("x")),
			wantKind:   types.KindModelNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "context length",
			err:        &length.ExceededError{ContextWindow: 2048, PromptTokens: 1900, MaxTokens: 200},
			wantKind:   types.KindContextLengthExceeded,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "This model's maximum context length is 2048 tokens.",
		},
		{
			name:       "unknown role",
			err:        &prompt.UnknownRoleError{Role: "tool"},
			wantKind:   types.KindInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Unknown role: tool",
		},
		{
			name:       "client disconnected",
			err:        session.ErrClientDisconnected,
			wantKind:   types.KindClientDisconnected,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Client disconnected",
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			wantKind:   types.KindClientDisconnected,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "engine failure",
			err:        errors.New("connection refused"),
			wantKind:   types.KindServer,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    internalErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HandleError(tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", got.StatusCode(), tt.wantStatus)
			}
			if tt.wantMsg != "" && !strings.HasPrefix(got.Message, tt.wantMsg) {
				t.Errorf("message = %q, want prefix %q", got.Message, tt.wantMsg)
			}
		})
	}
}
