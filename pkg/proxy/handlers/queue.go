package handlers

import (
	"log/slog"
	"net/http"

	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/queue"
)

// QueueHandler serves GET /queue with the engine's current backlog.
type QueueHandler struct {
	introspector *queue.Introspector
}

// NewQueueHandler creates a queue state handler.
func NewQueueHandler(introspector *queue.Introspector) *QueueHandler {
	return &QueueHandler{introspector: introspector}
}

// ServeHTTP implements http.Handler.
func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.introspector.Snapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read scheduler state", "error", err)
		_ = proxy.WriteErrorResponse(w, types.ServerError("failed to read scheduler state"))
		return
	}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, state); err != nil {
		slog.DebugContext(ctx, "failed to write queue state", "error", err)
	}
}
