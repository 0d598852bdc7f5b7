package remote

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/runpod/vllm/pkg/engine"
)

// maxLineSize bounds one NDJSON line. Cumulative snapshots with logprobs
// grow with the generated length, so this is well above bufio's default.
const maxLineSize = 16 * 1024 * 1024

// streamReader decodes newline-delimited RequestOutput objects.
type streamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

func newStreamReader(body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &streamReader{
		body:    body,
		scanner: scanner,
	}
}

// Read returns the next output. It returns nil, io.EOF when the stream ends.
func (s *streamReader) Read(ctx context.Context) (*engine.RequestOutput, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &engine.Error{Op: "generate", Message: "failed to read stream", Cause: err}
			}
			return nil, io.EOF
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ro engine.RequestOutput
		if err := sonic.Unmarshal(line, &ro); err != nil {
			return nil, &engine.ParseError{
				Op:    "generate",
				Raw:   truncate(string(line), 256),
				Cause: fmt.Errorf("failed to parse stream line: %w", err),
			}
		}

		return &ro, nil
	}
}

// Close closes the response body.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
