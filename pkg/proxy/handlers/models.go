package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/proxy/types"
)

// ModelsHandler serves GET /v1/models. The list always holds exactly the
// served model.
type ModelsHandler struct {
	model string
	now   func() time.Time
}

// NewModelsHandler creates a model list handler for model.
func NewModelsHandler(model string) *ModelsHandler {
	return &ModelsHandler{model: model, now: time.Now}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list := types.ModelList{
		Object: types.ObjectList,
		Data:   []types.ModelCard{types.NewModelCard(h.model, h.now().Unix())},
	}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, list); err != nil {
		slog.DebugContext(r.Context(), "failed to write model list", "error", err)
	}
}
