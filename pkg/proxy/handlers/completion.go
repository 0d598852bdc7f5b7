package handlers

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/response"
	"github.com/runpod/vllm/pkg/sampling"
	"github.com/runpod/vllm/pkg/stream"
	"github.com/runpod/vllm/pkg/telemetry/tracing"
)

// CompletionHandler serves POST /v1/completions.
type CompletionHandler struct {
	gw *Gateway
}

// NewCompletionHandler creates a text completions handler.
func NewCompletionHandler(gw *Gateway) *CompletionHandler {
	return &CompletionHandler{gw: gw}
}

// ServeHTTP implements http.Handler.
//
// A request that asks for a stream but returns fewer sequences than it
// samples (best_of > n) or uses beam search cannot be streamed live; its
// aggregated response is sent as a single SSE event followed by [DONE].
func (h *CompletionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gw := h.gw
	ctx, ex := gw.begin(r.Context(), proxy.EndpointCompletion)
	defer func() { gw.finish(ctx, ex) }()

	req, err := proxy.ParseCompletionRequest(r, gw.cfg.MaxBodyBytes)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	ex.req = proxy.ExtractCompletionMetadata(r, req)
	ex.req.Timestamp = ex.start

	if err := gw.checkModel(req.Model); err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	params, text, err := sampling.FromCompletion(req, gw.cfg.MaxN)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	text = gw.cfg.Assembler.Plain(text)

	promptTokens, err := gw.cfg.Guard.Check(ctx, text, params.MaxTokens)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	ex.resp.PromptTokens = promptTokens

	ctx, sess, err := gw.submit(ctx, ex, text, params)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}
	meta := gw.chunkMeta(sess.ID(), req.Model)
	logprobs := req.Logprobs != nil

	if stream.ShouldStream(stream.ModeCompletion, req.Stream, params.N, req.BestOf, params.UseBeamSearch) {
		opts := stream.Options{Mode: stream.ModeCompletion, Logprobs: logprobs, Tokenizer: gw.cfg.Tokenizer}
		started, err := gw.streamEvents(ctx, w, ex, sess, opts, meta)
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

	body, err := response.Completion(result, meta, gw.cfg.Tokenizer, logprobs)
	if err != nil {
		gw.fail(ctx, w, ex, err, false)
		return
	}

	if req.Stream {
		ex.span.SetAttributes(attribute.Bool(tracing.AttrFakeStream, true))
		if err := response.WriteFakeStream(w, body); err != nil {
			slog.DebugContext(ctx, "failed to write response", "error", err)
		}
		return
	}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, body); err != nil {
		slog.DebugContext(ctx, "failed to write response", "error", err)
	}
}
