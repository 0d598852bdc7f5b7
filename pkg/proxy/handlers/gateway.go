package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/runpod/vllm/pkg/engine"
	"github.com/runpod/vllm/pkg/length"
	"github.com/runpod/vllm/pkg/prompt"
	"github.com/runpod/vllm/pkg/proxy"
	"github.com/runpod/vllm/pkg/proxy/middleware"
	"github.com/runpod/vllm/pkg/proxy/types"
	"github.com/runpod/vllm/pkg/sampling"
	"github.com/runpod/vllm/pkg/session"
	"github.com/runpod/vllm/pkg/stream"
	"github.com/runpod/vllm/pkg/telemetry/logging"
	"github.com/runpod/vllm/pkg/telemetry/metrics"
	"github.com/runpod/vllm/pkg/telemetry/tracing"
	"github.com/runpod/vllm/pkg/tokenizer"
)

// Recorder receives one entry per finished generation request. The audit
// log implements it.
type Recorder interface {
	Record(ctx context.Context, req *proxy.RequestMetadata, resp *proxy.ResponseMetadata)
}

// Config holds the collaborators shared by the generation handlers.
type Config struct {
	// ServedModel is the only model name accepted in request bodies.
	ServedModel string

	Engine    engine.Engine
	Assembler *prompt.Assembler
	Guard     *length.Guard

	// Tokenizer decodes token ids for completion logprobs.
	Tokenizer tokenizer.Tokenizer

	// MaxBodyBytes bounds the request body. Zero selects
	// proxy.MaxRequestBodySize.
	MaxBodyBytes int64

	// MaxN caps n and best_of. Zero selects sampling.DefaultMaxN.
	MaxN int

	// Optional.
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Recorder Recorder
}

// Gateway runs the request pipeline shared by chat and text completions:
// model check, prompt assembly, length check, sampling, engine submission
// and response delivery.
type Gateway struct {
	cfg Config
	now func() time.Time
}

// NewGateway validates cfg and returns a gateway.
func NewGateway(cfg Config) (*Gateway, error) {
	switch {
	case cfg.ServedModel == "":
		return nil, errors.New("served model name is required")
	case cfg.Engine == nil:
		return nil, errors.New("engine is required")
	case cfg.Assembler == nil:
		return nil, errors.New("prompt assembler is required")
	case cfg.Guard == nil:
		return nil, errors.New("length guard is required")
	case cfg.Tokenizer == nil:
		return nil, errors.New("tokenizer is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = proxy.MaxRequestBodySize
	}
	if cfg.MaxN <= 0 {
		cfg.MaxN = sampling.DefaultMaxN
	}
	return &Gateway{cfg: cfg, now: time.Now}, nil
}

// ServedModel returns the accepted model name.
func (g *Gateway) ServedModel() string {
	return g.cfg.ServedModel
}

// exchange tracks one request from parsing to the last byte written.
type exchange struct {
	start time.Time
	span  trace.Span
	req   *proxy.RequestMetadata
	resp  *proxy.ResponseMetadata

	// submitted is set once the engine accepted the request.
	submitted bool
	sess      *session.Session
}

func (g *Gateway) begin(ctx context.Context, endpoint string) (context.Context, *exchange) {
	ctx = logging.WithEndpoint(ctx, endpoint)
	ctx, span := g.cfg.Tracer.Start(ctx, "gateway."+endpoint, trace.WithSpanKind(trace.SpanKindServer))

	// Latency counts from the logging middleware's start time when present.
	start := middleware.GetStartTime(ctx)
	if start.IsZero() {
		start = g.now()
	}
	return ctx, &exchange{
		start: start,
		span:  span,
		req:   &proxy.RequestMetadata{Endpoint: endpoint, Timestamp: start},
		resp:  &proxy.ResponseMetadata{},
	}
}

// checkModel rejects any model name other than the served one.
func (g *Gateway) checkModel(model string) error {
	if model != g.cfg.ServedModel {
		return types.ModelNotFound(model)
	}
	return nil
}

// submit creates and submits the engine session for prompt. The returned
// context carries the completion id for logging.
func (g *Gateway) submit(ctx context.Context, ex *exchange, text string, params engine.SamplingParams) (context.Context, *session.Session, error) {
	sess := session.New(g.cfg.Engine, text, params)
	ex.req.RequestID = sess.ID()
	ex.resp.RequestID = sess.ID()
	ex.sess = sess
	ctx = logging.WithCompletionID(ctx, sess.ID())

	tracing.SetRequestAttributes(ex.span, ex.req.Endpoint, ex.req.Model, logging.GetRequestID(ctx), sess.ID())
	tracing.SetSamplingAttributes(ex.span, params.N, params.BestOf, params.MaxTokens, params.UseBeamSearch, ex.req.Stream)

	if _, err := sess.Submit(ctx); err != nil {
		return ctx, nil, fmt.Errorf("failed to submit request %s: %w", sess.ID(), err)
	}
	ex.submitted = true
	tracing.AddEvent(ex.span, tracing.EventSubmitted)
	slog.DebugContext(ctx, "request submitted",
		"n", params.N,
		"best_of", params.BestOf,
		"max_tokens", params.MaxTokens,
		"stream", ex.req.Stream,
	)
	return ctx, sess, nil
}

// streamEvents sends the live SSE stream of a submitted session. An error
// returned before any frame was written leaves the response untouched so
// the caller can still send a JSON error.
func (g *Gateway) streamEvents(ctx context.Context, w http.ResponseWriter, ex *exchange, sess *session.Session, opts stream.Options, meta stream.ChunkMeta) (bool, error) {
	tr := stream.NewTranslator(sess.Params().N, opts)
	sse := proxy.NewSSEWriter(w)
	submitted := g.now()
	generated := false

	sink := stream.SinkFunc(func(_ context.Context, ev stream.Event) error {
		if ev.Done {
			return sse.WriteDone()
		}
		// Role announcements precede any engine output.
		if !generated && ev.Role == "" {
			generated = true
			ex.resp.TimeToFirstEvent = g.now().Sub(submitted)
			tracing.AddEvent(ex.span, tracing.EventFirstOutput)
		}
		return sse.WriteEvent(stream.Chunk(opts.Mode, meta, ev))
	})

	err := stream.Pump(ctx, sess, tr, sink)

	promptTokens, completionTokens := tr.Usage()
	if promptTokens > 0 {
		ex.resp.PromptTokens = promptTokens
	}
	ex.resp.CompletionTokens = completionTokens
	ex.resp.FinishReasons = tr.FinishReasons()
	ex.resp.Streamed = true
	g.cfg.Metrics.RecordStreamEvents(ex.req.Endpoint, sse.Frames())
	ex.span.SetAttributes(attribute.Int(tracing.AttrStreamEvents, sse.Frames()))

	return sse.Started(), err
}

// fail reports err to the client unless a response was already started.
func (g *Gateway) fail(ctx context.Context, w http.ResponseWriter, ex *exchange, err error, started bool) {
	apiErr := proxy.HandleError(err)

	ex.resp.StatusCode = apiErr.StatusCode()
	ex.resp.Error = err
	ex.resp.Disconnected = apiErr.Kind == types.KindClientDisconnected || isSinkError(err)
	ex.span.SetAttributes(attribute.String(tracing.AttrErrorKind, apiErr.Kind.String()))

	switch {
	case ex.resp.Disconnected:
		tracing.AddEvent(ex.span, tracing.EventClientGone)
		slog.InfoContext(ctx, "client disconnected", "error", err)
	case apiErr.Kind == types.KindServer:
		tracing.SetError(ex.span, err)
		slog.ErrorContext(ctx, "generation failed", "error", err)
	default:
		slog.InfoContext(ctx, "request rejected",
			"kind", apiErr.Kind.String(),
			"error", apiErr.Message,
		)
	}

	if !ex.submitted {
		g.cfg.Metrics.RecordRejection(ex.req.Endpoint, apiErr.Kind.String())
	}
	if started {
		ex.resp.StatusCode = http.StatusOK
		return
	}
	if werr := proxy.WriteErrorResponse(w, apiErr); werr != nil {
		slog.DebugContext(ctx, "failed to write error response", "error", werr)
	}
}

// finish publishes the outcome of a request to metrics, tracing, the
// recorder and the log. It runs once per request.
func (g *Gateway) finish(ctx context.Context, ex *exchange) {
	defer ex.span.End()

	if ex.resp.StatusCode == 0 {
		ex.resp.StatusCode = http.StatusOK
	}
	ex.resp.Latency = g.now().Sub(ex.start)
	ex.resp.Timestamp = g.now()

	m := g.cfg.Metrics
	m.RecordRequest(ex.req.Endpoint, ex.req.Model, ex.resp.Status(), ex.resp.Streamed, ex.resp.Latency)
	if ex.submitted {
		m.RecordTokens(ex.req.Endpoint, ex.resp.PromptTokens, ex.resp.CompletionTokens)
		for _, reason := range ex.resp.FinishReasons {
			m.RecordFinish(ex.req.Endpoint, reason)
		}
		if ex.resp.Streamed {
			m.RecordTimeToFirstEvent(ex.req.Endpoint, ex.resp.TimeToFirstEvent)
		}
	}
	if ex.sess != nil && ex.sess.Aborted() {
		m.RecordAbort(abortCause(ex.resp))
		tracing.AddEvent(ex.span, tracing.EventAborted)
	}

	tracing.SetTokenAttributes(ex.span, ex.resp.PromptTokens, ex.resp.CompletionTokens)
	tracing.SetFinishAttributes(ex.span, ex.resp.FinishReasons)
	tracing.SetStatus(ex.span, ex.resp.Error)

	if g.cfg.Recorder != nil {
		g.cfg.Recorder.Record(ctx, ex.req, ex.resp)
	}

	slog.InfoContext(ctx, "request completed",
		"model", ex.req.Model,
		"status", ex.resp.Status(),
		"status_code", ex.resp.StatusCode,
		"stream", ex.req.Stream,
		"live_stream", ex.resp.Streamed,
		"prompt_tokens", ex.resp.PromptTokens,
		"completion_tokens", ex.resp.CompletionTokens,
		"finish_reasons", ex.resp.FinishReasons,
		"latency_ms", ex.resp.Latency.Milliseconds(),
	)
}

func (g *Gateway) chunkMeta(id, model string) stream.ChunkMeta {
	return stream.ChunkMeta{ID: id, Model: model, Created: g.now().Unix()}
}

func abortCause(resp *proxy.ResponseMetadata) string {
	switch {
	case isSinkError(resp.Error):
		return "write_error"
	case resp.Disconnected:
		return "disconnect"
	default:
		return "engine_error"
	}
}

func isSinkError(err error) bool {
	var sinkErr *stream.SinkError
	return errors.As(err, &sinkErr)
}
