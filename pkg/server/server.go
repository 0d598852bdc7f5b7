// Package server provides the HTTP server of the gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/runpod/vllm/pkg/config"
	"github.com/runpod/vllm/pkg/proxy/handlers"
	"github.com/runpod/vllm/pkg/proxy/middleware"
	"github.com/runpod/vllm/pkg/queue"
	"github.com/runpod/vllm/pkg/telemetry/health"
	"github.com/runpod/vllm/pkg/telemetry/metrics"
	"github.com/runpod/vllm/pkg/telemetry/tracing"
)

// Routes holds the components mounted by the server. Gateway is required;
// the rest are optional and their endpoints are omitted when nil.
type Routes struct {
	Gateway *handlers.Gateway
	Queue   *queue.Introspector
	Health  *health.Checker
	Metrics *metrics.Collector

	// Version is served at GET /version when set.
	Version *health.VersionInfo
}

// Server is the HTTP front of the gateway.
type Server struct {
	config     *config.Config
	routes     Routes
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server for cfg.
func NewServer(cfg *config.Config, routes Routes) *Server {
	return &Server{config: cfg, routes: routes}
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	srvCfg := s.config.Server
	s.httpServer = &http.Server{
		Addr:           srvCfg.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxHeaderBytes: srvCfg.MaxHeaderBytes,
	}
	var reloader *certReloader
	if srvCfg.TLS.Enabled {
		tlsConfig, r, err := configureTLS(&srvCfg.TLS)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		reloader = r
	}

	ln, err := net.Listen("tcp", srvCfg.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddress, err)
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	if reloader != nil {
		reloadCtx, stopReload := context.WithCancel(ctx)
		defer stopReload()
		go reloader.run(reloadCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server",
			"address", ln.Addr().String(),
			"model", s.routes.Gateway.ServedModel(),
			"tls_enabled", srvCfg.TLS.Enabled,
		)

		var err error
		if srvCfg.TLS.Enabled {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout. Streams still open at the
// deadline are closed, which aborts their engine requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.config.Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			_ = s.httpServer.Close()
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
//
// Middleware order, outermost first: recovery, logging, request id,
// trace context, CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	gw := s.routes.Gateway

	mux.Handle("GET /v1/models", handlers.NewModelsHandler(gw.ServedModel()))
	mux.Handle("POST /v1/chat/completions", handlers.NewChatHandler(gw))
	mux.Handle("POST /v1/completions", handlers.NewCompletionHandler(gw))

	if s.routes.Queue != nil {
		queueHandler := middleware.TimeoutMiddleware(s.config.Engine.Timeout)(handlers.NewQueueHandler(s.routes.Queue))
		mux.Handle("GET /queue", queueHandler)
	}

	if c := s.routes.Health; c != nil {
		hc := s.config.Telemetry.Health
		mux.Handle(hc.LivenessPath, c.LivenessHandler())
		mux.Handle(hc.ReadinessPath, c.ReadinessHandler())
	}

	if v := s.routes.Version; v != nil {
		mux.Handle("/version", health.VersionHandler(v.Version, v.Commit, v.BuildTime))
	}

	if m := s.routes.Metrics; m.Enabled() {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, m.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(&s.config.Server.CORS)(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
