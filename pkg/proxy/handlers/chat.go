package handlers

import (
	"log/slog"
	"net/http"

	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/response"
	"github.com/runpod/vllm/pkg/sampling"
	"github.com/runpod/vllm/pkg/stream"
)

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	gw *Gateway
}

// NewChatHandler creates a chat completions handler.
func NewChatHandler(gw *Gateway) *ChatHandler {
	return &ChatHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gw := h.gw
	ctx, ex := gw.begin(r.Context(), proxy.EndpointChat)
	defer func() { gw.finish(ctx, ex) }()

	req, err := proxy.ParseChatCompletionRequest(r, gw.cfg.MaxBodyBytes)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	ex.req = proxy.ExtractChatMetadata(r, req)
	ex.req.Timestamp = ex.start

	if err := gw.checkModel(req.Model); err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	if err := sampling.CheckChat(req); err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	text, err := h.prompt(req)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	promptTokens, err := gw.cfg.Guard.Check(ctx, text, sampling.MaxTokens(req.MaxTokens))
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	ex.resp.PromptTokens = promptTokens

	params, err := sampling.FromChat(req, gw.cfg.MaxN)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	ctx, sess, err := gw.submit(ctx, ex, text, params)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	meta := gw.chunkMeta(sess.ID(), req.Model)

	if stream.ShouldStream(stream.ModeChat, req.Stream, params.N, req.BestOf, params.UseBeamSearch) {
		started, err := gw.streamEvents(ctx, w, ex, sess, stream.Options{Mode: stream.ModeChat}, meta)
		if err != nil {
			gw.fail(ctx, w, ex, err, started)
		}
		return
	}

	result, err := response.Drain(ctx, sess)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	if result.PromptTokens > 0 {
		ex.resp.PromptTokens = result.PromptTokens
	}
	ex.resp.CompletionTokens = result.CompletionTokens
	ex.resp.FinishReasons = result.FinishReasons()

	if err := proxy.WriteJSONResponse(w, http.StatusOK, response.Chat(result, meta)); err != nil {
		slog.DebugContext(ctx, "failed to write response", "error", err)
	}
}

// prompt renders the messages with the model's chat template, or passes a
// raw string prompt through.
func (h *ChatHandler) prompt(req *types.ChatCompletionRequest) (string, error) {
	if req.Messages.Raw != nil {
		return h.gw.cfg.Assembler.Plain(*req.Messages.Raw), nil
	}
	return h.gw.cfg.Assembler.Assemble(req.Model, req.Messages.List)
}
