// Package health provides the liveness and readiness probes of the gateway.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process serves HTTP
//   - /ready: readiness, 200 when every registered check passes, 503 otherwise
//   - /version: build information
//
// Paths for the first two come from telemetry.health in the configuration.
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("engine", health.EngineCheck(eng))
//	checker.RegisterCheck("model", health.ModelCheck(eng))
//
//	mux.Handle("GET /health", checker.LivenessHandler())
//	mux.Handle("GET /ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker's timeout. A check
// that does not return in time is reported as unhealthy with
// ErrCheckTimeout's message.
package health
