package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress      = "127.0.0.1:8000"
	DefaultReadTimeout        = 30 * time.Second
	DefaultIdleTimeout        = 5 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMaxHeaderBytes     = 1048576  // 1MB
	DefaultMaxRequestBodySize = 10485760 // 10MB
	DefaultTLSMinVersion      = "1.2"
	DefaultTLSReloadInterval  = 5 * time.Minute

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 600

	// Engine defaults
	DefaultEngineBaseURL      = "http://127.0.0.1:8001"
	DefaultEngineTimeout      = 10 * time.Second
	DefaultEngineMaxRetries   = 3
	DefaultEngineRetryBackoff = 100 * time.Millisecond
	DefaultEngineMaxN         = 128

	// Tokenizer defaults
	DefaultTokenizerEncoding      = "cl100k_base"
	DefaultTokenizerCacheTTL      = 2 * time.Minute
	DefaultTokenizerCacheCapacity = 4096

	// Queue defaults
	DefaultQueuePollInterval = 5 * time.Second

	// Audit defaults
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLiteDriver         = "mattn"
	DefaultAuditSQLitePath           = "data/requests.db"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRecorderMaxFieldLen  = 500
	DefaultAuditRetentionDays        = 30
	DefaultAuditRetentionSchedule    = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "vllm"
	DefaultMetricsSubsystem    = "gateway"
	DefaultTracingSampler      = "parentbased"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingEndpoint     = "localhost:4317"
	DefaultTracingServiceName  = "vllm-gateway"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// Default returns a Config with every field set to its default value.
// LoadConfig unmarshals YAML on top of it, so booleans that default to true
// keep their default unless the file sets them explicitly.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Audit.SQLite.WALMode = DefaultAuditSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxRequestBodySize == 0 {
		cfg.Server.MaxRequestBodySize = DefaultMaxRequestBodySize
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Engine defaults
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = DefaultEngineBaseURL
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = DefaultEngineTimeout
	}
	if cfg.Engine.MaxRetries == 0 {
		cfg.Engine.MaxRetries = DefaultEngineMaxRetries
	}
	if cfg.Engine.RetryBackoff == 0 {
		cfg.Engine.RetryBackoff = DefaultEngineRetryBackoff
	}
	if cfg.Engine.MaxN == 0 {
		cfg.Engine.MaxN = DefaultEngineMaxN
	}

	// Tokenizer defaults
	if cfg.Tokenizer.Encoding == "" {
		cfg.Tokenizer.Encoding = DefaultTokenizerEncoding
	}
	if cfg.Tokenizer.CacheTTL == 0 {
		cfg.Tokenizer.CacheTTL = DefaultTokenizerCacheTTL
	}
	if cfg.Tokenizer.CacheCapacity == 0 {
		cfg.Tokenizer.CacheCapacity = DefaultTokenizerCacheCapacity
	}

	// Queue defaults
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = DefaultQueuePollInterval
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}
	if cfg.Audit.Recorder.MaxFieldLength == 0 {
		cfg.Audit.Recorder.MaxFieldLength = DefaultAuditRecorderMaxFieldLen
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultAuditRetentionSchedule
	}

	// Telemetry defaults
	applyTelemetryDefaults(&cfg.Telemetry)
}

// applyCORSDefaults applies default values to CORS configuration.
// The defaults allow every origin, method and header without credentials.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"*"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"*"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.RedactKeys == nil {
		t.Logging.RedactKeys = []string{"authorization", "api_key", "prompt"}
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	}
	if len(t.Metrics.TokenCountBuckets) == 0 {
		t.Metrics.TokenCountBuckets = []float64{16, 64, 256, 512, 1024, 2048, 4096, 8192}
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
