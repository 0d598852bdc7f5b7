package config

import "time"

// Config is the root configuration structure for the gateway.
// It contains all configuration sections for the HTTP server, the served
// model, the generation engine connection, tokenization, the request audit
// log, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, CORS and TLS.
	Server ServerConfig `yaml:"server"`

	// Model describes the single model this gateway serves and how its
	// chat prompts are built.
	Model ModelConfig `yaml:"model"`

	// Engine contains the connection settings for the generation engine.
	Engine EngineConfig `yaml:"engine"`

	// Tokenizer contains prompt tokenization settings used for the
	// context-length check.
	Tokenizer TokenizerConfig `yaml:"tokenizer"`

	// Queue contains engine backlog polling settings.
	Queue QueueConfig `yaml:"queue"`

	// Audit contains configuration for the per-request audit log.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8000", "0.0.0.0:443").
	// Default: "127.0.0.1:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Generation responses can be long-lived streams, so zero
	// (no timeout) is the default.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive timeout between requests on one
	// connection.
	// Default: 5s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxRequestBodySize limits the size of request bodies in bytes.
	// Default: 10485760 (10MB)
	MaxRequestBodySize int64 `yaml:"max_request_body_size"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains optional TLS termination settings.
	TLS TLSConfig `yaml:"tls"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are added to responses.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of origins allowed to make requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of HTTP methods allowed.
	// Default: ["*"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of headers clients may send.
	// Default: ["*"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to clients.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// AllowCredentials indicates whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 600
	MaxAge int `yaml:"max_age"`
}

// TLSConfig contains TLS settings for the listener.
type TLSConfig struct {
	// Enabled turns on TLS termination.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate path.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key path.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. Renewed certificates are picked up without a restart.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// ModelConfig describes the served model.
type ModelConfig struct {
	// ServedName is the model name clients must send. Requests naming any
	// other model are rejected with 404.
	ServedName string `yaml:"served_name"`

	// Template forces a conversation template by name. When empty the
	// template is resolved from ServedName.
	Template string `yaml:"template"`

	// TemplateFile is an optional YAML file with additional conversation
	// templates.
	TemplateFile string `yaml:"template_file"`

	// WatchTemplates reloads TemplateFile when it changes on disk.
	// Default: false
	WatchTemplates bool `yaml:"watch_templates"`
}

// EngineConfig contains the generation engine connection settings.
type EngineConfig struct {
	// BaseURL is the engine worker's HTTP address.
	// Default: "http://127.0.0.1:8001"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds non-streaming engine calls (abort, metadata, scheduler,
	// health). Generation streams are bounded only by the request context.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient failures of
	// non-streaming calls.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial backoff between retries. It doubles per
	// attempt.
	// Default: 100ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxN caps the n and best_of of one request. The gateway keeps state
	// per sequence, so larger values are rejected before submission.
	// Default: 128
	MaxN int `yaml:"max_n"`
}

// TokenizerConfig contains prompt tokenization settings.
type TokenizerConfig struct {
	// Encoding is the BPE encoding name.
	// Options: "cl100k_base", "o200k_base", "p50k_base", "r50k_base"
	// Default: "cl100k_base"
	Encoding string `yaml:"encoding"`

	// CacheTTL is how long prompt token counts are memoised.
	// Default: 2m
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheCapacity bounds the number of memoised prompts (0 = unbounded).
	// Default: 4096
	CacheCapacity uint64 `yaml:"cache_capacity"`
}

// QueueConfig contains engine backlog polling settings.
type QueueConfig struct {
	// PollInterval is how often the scheduler snapshot is published to
	// metrics. Zero disables polling; GET /queue still works.
	// Default: 5s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AuditConfig contains configuration for the request audit log.
type AuditConfig struct {
	// Enabled controls whether generation requests are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains asynchronous recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains record retention configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Driver selects the database/sql driver.
	// Options: "mattn" (cgo), "modernc" (pure Go)
	// Default: "mattn"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/requests.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains asynchronous recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the channel size for pending records. Records are
	// dropped (and counted) when it is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFieldLength truncates long string fields such as error messages.
	// Default: 500
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig contains record retention configuration.
type RetentionConfig struct {
	// Days is how long records are kept (0 = forever).
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for pruning runs.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored records (0 = unlimited).
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactKeys lists attribute keys whose values are replaced with
	// "[REDACTED]".
	// Default: ["authorization", "api_key", "prompt"]
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "vllm"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration
	// in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// TokenCountBuckets defines histogram buckets for token counts.
	TokenCountBuckets []float64 `yaml:"token_count_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parentbased"
	// Default: "parentbased"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "vllm-gateway"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for the engine readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
