package response

import (
	"net/http"

	"github.com/runpod/vllm/pkg/proxy"
)

// WriteFakeStream sends a complete response to a client that asked for a
// stream the request cannot produce live: one data event carrying body,
// followed by the [DONE] terminator.
func WriteFakeStream(w http.ResponseWriter, body any) error {
	sse := proxy.NewSSEWriter(w)
	if err := sse.WriteEvent(body); err != nil {
		return err
	}
	return sse.WriteDone()
}
