package proxy

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/runpod/vllm/pkg/proxy/types"
)

// WriteJSONResponse writes data as a JSON body with statusCode.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	body, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes err in the gateway's error format.
func WriteErrorResponse(w http.ResponseWriter, err *types.APIError) error {
	return WriteJSONResponse(w, err.StatusCode(), err.Response())
}

// SetSSEHeaders sets the headers of a server-sent events response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sseDone is the stream terminator frame.
const sseDone = "data: [DONE]\n\n"

// SSEWriter writes "data: <json>\n\n" frames and flushes after each one.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
	started bool
	frames  int
}

// NewSSEWriter wraps w. Headers are sent with the first frame.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// Started reports whether any bytes were written.
func (s *SSEWriter) Started() bool { return s.started }

// Frames returns the number of data frames written, terminator included.
func (s *SSEWriter) Frames() int { return s.frames }

// WriteEvent encodes v as one data frame.
func (s *SSEWriter) WriteEvent(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE event: %w", err)
	}

	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')
	return s.write(frame)
}

// WriteDone writes the terminator frame.
func (s *SSEWriter) WriteDone() error {
	return s.write([]byte(sseDone))
}

func (s *SSEWriter) write(frame []byte) error {
	if rw, ok := s.w.(http.ResponseWriter); ok && !s.started {
		SetSSEHeaders(rw)
		rw.WriteHeader(http.StatusOK)
	}
	s.started = true

	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write SSE frame: %w", err)
	}
	s.frames++
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
