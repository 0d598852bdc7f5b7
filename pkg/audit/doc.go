// Package audit keeps a log of generation requests.
//
// Every chat or text completion handled by the gateway produces one Record,
// whether it succeeded, was rejected before reaching the engine, failed, or
// was cut short by a client disconnect. Records hold request shape (model,
// n, max_tokens, stream mode), outcome (status, finish reasons, token
// usage, latency) and client details. Prompt and completion text are never
// stored.
//
// # Layout
//
//   - audit: Record, Query and the Storage and Exporter interfaces
//   - audit/storage: in-memory and SQLite backends
//   - audit/recorder: asynchronous writer fed by the HTTP handlers
//   - audit/retention: age and count based pruning on a cron schedule
//   - audit/export: JSON, CSV and table output for the CLI
//
// # Usage
//
//	store, err := storage.New(&cfg.Audit)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.New(store, &cfg.Audit.Recorder)
//	defer rec.Close()
//
//	gw, err := handlers.NewGateway(handlers.Config{..., Recorder: rec})
//
// Records are written off the request path. When the recorder buffer is
// full new records are dropped and counted rather than delaying responses.
package audit
