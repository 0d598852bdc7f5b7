package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		RecoveryMiddleware(handler).ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusInternalServerError)
		}

		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["object"] != "error" || body["type"] != "server_error" {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		RecoveryMiddleware(okHandler()).ServeHTTP(w, req)

		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("re-panics on abort handler", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})

		defer func() {
			if r := recover(); r != http.ErrAbortHandler {
				t.Errorf("recovered %v, want http.ErrAbortHandler", r)
			}
		}()

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		RecoveryMiddleware(handler).ServeHTTP(httptest.NewRecorder(), req)
	})
}
