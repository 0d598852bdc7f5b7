package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the audit tables. Times and durations are stored as
// integer nanoseconds so both SQLite drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS requests (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',

    request_time_ns INTEGER NOT NULL,
    recorded_time_ns INTEGER NOT NULL,

    endpoint TEXT NOT NULL,
    method TEXT NOT NULL DEFAULT '',
    path TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    end_user TEXT NOT NULL DEFAULT '',
    remote_addr TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    stream INTEGER NOT NULL DEFAULT 0,
    n INTEGER NOT NULL DEFAULT 0,
    max_tokens INTEGER NOT NULL DEFAULT 0,

    status_code INTEGER NOT NULL,
    status TEXT NOT NULL,
    streamed INTEGER NOT NULL DEFAULT 0,
    disconnected INTEGER NOT NULL DEFAULT 0,
    finish_reasons TEXT NOT NULL DEFAULT '[]',
    prompt_tokens INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    latency_ns INTEGER NOT NULL DEFAULT 0,
    time_to_first_event_ns INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_request_time ON requests(request_time_ns);
CREATE INDEX IF NOT EXISTS idx_requests_request_id ON requests(request_id);
CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const recordColumns = `id, request_id,
	request_time_ns, recorded_time_ns,
	endpoint, method, path, model, end_user, remote_addr, user_agent, stream, n, max_tokens,
	status_code, status, streamed, disconnected, finish_reasons,
	prompt_tokens, completion_tokens, total_tokens, latency_ns, time_to_first_event_ns,
	error`
