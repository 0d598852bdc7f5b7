package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "VLLM_GATEWAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default(), then defaults are applied to any
// remaining zero values and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VLLM_GATEWAY_SECTION_FIELD (e.g., VLLM_GATEWAY_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// A missing file is not an error: the gateway can be configured entirely from
// the environment.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is LoadConfigWithEnvOverrides with a final override
// step, applied after the environment and before validation. The CLI uses it
// for flags such as --listen.
func LoadWithOverrides(path string, override func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	if override != nil {
		override(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envDuration("SERVER_TLS_RELOAD_INTERVAL", &cfg.Server.TLS.ReloadInterval)

	envString("MODEL_SERVED_NAME", &cfg.Model.ServedName)
	envString("MODEL_TEMPLATE", &cfg.Model.Template)
	envString("MODEL_TEMPLATE_FILE", &cfg.Model.TemplateFile)

	envString("ENGINE_BASE_URL", &cfg.Engine.BaseURL)
	envDuration("ENGINE_TIMEOUT", &cfg.Engine.Timeout)
	envInt("ENGINE_MAX_RETRIES", &cfg.Engine.MaxRetries)
	envInt("ENGINE_MAX_N", &cfg.Engine.MaxN)

	envString("TOKENIZER_ENCODING", &cfg.Tokenizer.Encoding)
	envDuration("QUEUE_POLL_INTERVAL", &cfg.Queue.PollInterval)

	envBool("AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)

	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val, ok := lookupEnv("TELEMETRY_TRACING_SAMPLE_RATIO"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func lookupEnv(key string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return val, true
}

func envString(key string, dst *string) {
	if val, ok := lookupEnv(key); ok {
		*dst = val
	}
}

func envDuration(key string, dst *time.Duration) {
	if val, ok := lookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if val, ok := lookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val, ok := lookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
