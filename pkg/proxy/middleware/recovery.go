package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/runpod/vllm/pkg/proxy/types"
)

// RecoveryMiddleware turns a handler panic into a logged error and a 500
// response, so one bad request cannot take the gateway down.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			resp := types.ServerError("An internal error occurred. Please try again later.").Response()
			writeJSON(w, http.StatusInternalServerError, resp)
		}()

		next.ServeHTTP(w, r)
	})
}
