package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/runpod/vllm/pkg/config"
)

// allMethods is sent for a "*" method list.
var allMethods = []string{"DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

// CORSMiddleware adds Cross-Origin Resource Sharing headers to responses and
// answers preflight requests.
//
// "*" in AllowedOrigins allows any origin. "*" in AllowedMethods allows
// every standard method, and "*" in AllowedHeaders echoes whatever headers
// the preflight asks for. When credentials are allowed the request origin
// is echoed instead of "*", as browsers require.
//
// Example usage:
//
//	handler = CORSMiddleware(&cfg.Server.CORS)(handler)
func CORSMiddleware(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg == nil || !cfg.Enabled {
			return next
		}

		wildcardOrigin := slices.Contains(cfg.AllowedOrigins, "*")
		methods := cfg.AllowedMethods
		if slices.Contains(methods, "*") {
			methods = allMethods
		}
		wildcardHeaders := slices.Contains(cfg.AllowedHeaders, "*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			switch {
			case wildcardOrigin && !cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", "*")
			case wildcardOrigin || slices.Contains(cfg.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			default:
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					http.Error(w, "Disallowed CORS origin", http.StatusBadRequest)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			// Preflight
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))

				if wildcardHeaders {
					if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
						h.Set("Access-Control-Allow-Headers", requested)
					}
				} else if len(cfg.AllowedHeaders) > 0 {
					h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				}

				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusOK)
				return
			}

			if len(cfg.ExposedHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
			}
			next.ServeHTTP(w, r)
		})
	}
}
