// Package server runs the HTTP front of the gateway.
//
// # Routes
//
//	GET  /v1/models            served model list
//	POST /v1/chat/completions  chat generation
//	POST /v1/completions       text generation
//	GET  /queue                engine scheduler backlog
//	GET  /health, /ready       liveness and readiness probes
//	GET  /version              build information
//	GET  /metrics              Prometheus exposition
//
// Probe and metrics paths come from the telemetry configuration. Optional
// routes are only mounted when their component is supplied in Routes.
//
// # Middleware
//
// Every request passes through, outermost first: panic recovery, request
// logging, X-Request-ID assignment, W3C trace context extraction and CORS.
// Generation endpoints carry no request timeout because streams may run for
// minutes; /queue is bounded by the engine timeout.
//
// # TLS
//
// With server.tls.enabled the key pair is loaded at Start and must be
// currently valid. The files are polled every server.tls.reload_interval and
// a renewed pair replaces the old one for new handshakes; a pair that fails
// to load is logged and the previous one stays in use.
//
// # Lifecycle
//
//	srv := server.NewServer(cfg, server.Routes{Gateway: gw, Health: checker})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then drains in-flight requests for
// up to Server.ShutdownTimeout. Streams still open after that are closed and
// their engine requests aborted.
package server
