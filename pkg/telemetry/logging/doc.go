// Package logging configures the process-wide log/slog logger.
//
// # Usage
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "generation submitted", "n", 2)
//	// {"level":"INFO","msg":"generation submitted","n":2,"request_id":"req-123"}
//
// Records logged with a context pick up the request id, the engine
// completion id, the endpoint name and, when a span is active, the
// OpenTelemetry trace and span ids.
//
// # Redaction
//
// Attributes whose key is sensitive ("authorization", "api_key" and the
// configured redact_keys) are replaced with "[REDACTED]". Bearer tokens and
// sk- style keys are masked inside any string or error value.
package logging
