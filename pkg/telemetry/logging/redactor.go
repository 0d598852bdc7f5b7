package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// DefaultSensitiveKeys are always redacted, in addition to configured keys.
var DefaultSensitiveKeys = []string{"authorization", "api_key", "password", "secret", "token"}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// Credentials that may appear inside otherwise harmless values, such as an
// engine error message echoing a header.
var defaultPatterns = []redactPattern{
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{8,}`), "sk-***"},
}

// Redactor hides sensitive attribute values in log records.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor returns a redactor for DefaultSensitiveKeys plus keys.
// Key matching is case-insensitive.
func NewRedactor(keys []string) *Redactor {
	r := &Redactor{keys: make(map[string]struct{})}
	for _, k := range DefaultSensitiveKeys {
		r.keys[k] = struct{}{}
	}
	for _, k := range keys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	return r
}

// IsSensitive reports whether values under key are redacted entirely.
func (r *Redactor) IsSensitive(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// RedactString masks credentials found inside value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range defaultPatterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if r.IsSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			if redacted := r.RedactString(s); redacted != s {
				return slog.String(a.Key, redacted)
			}
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if redacted := r.RedactString(msg); redacted != msg {
				return slog.String(a.Key, redacted)
			}
		}
	}
	return a
}
