// Package middleware provides the HTTP middleware chain of the gateway.
//
// The server wraps every route in this order, outermost first:
//
//	RecoveryMiddleware -> RequestIDMiddleware -> LoggingMiddleware -> CORSMiddleware -> handler
//
// Recovery turns handler panics into 500 responses. RequestID assigns or
// propagates X-Request-ID and stores it where the logger finds it. Logging
// records status and latency per request and keeps http.Flusher working
// for streamed responses. CORS answers preflight requests.
//
// TimeoutMiddleware is applied only to the short endpoints (/queue, /ready);
// generation streams run until the engine finishes or the client leaves.
package middleware
