package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "0.0.0.0:443"
  idle_timeout: "10s"

model:
  served_name: "lmsys/vicuna-7b-v1.5"

engine:
  base_url: "http://engine:8001"
  max_retries: 5

audit:
  enabled: true
  backend: "memory"

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: false
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:443" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:443", cfg.Server.ListenAddress)
	}
	if cfg.Server.IdleTimeout != 10*time.Second {
		t.Errorf("expected idle timeout %v, got %v", 10*time.Second, cfg.Server.IdleTimeout)
	}
	if cfg.Model.ServedName != "lmsys/vicuna-7b-v1.5" {
		t.Errorf("expected served name, got %q", cfg.Model.ServedName)
	}
	if cfg.Engine.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.Timeout != DefaultEngineTimeout {
		t.Errorf("expected default engine timeout, got %v", cfg.Engine.Timeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to be explicitly disabled")
	}
	if !cfg.Server.CORS.Enabled {
		t.Error("expected CORS to keep its default of enabled")
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("expected WAL mode to keep its default of enabled")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParse_ValidationFailure(t *testing.T) {
	_, err := Parse([]byte(`
engine:
  base_url: "ftp://engine"
`))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := map[string]bool{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"model.served_name", "engine.base_url"} {
		if !fields[want] {
			t.Errorf("expected field error for %s, got %v", want, verr.Errors)
		}
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("VLLM_GATEWAY_MODEL_SERVED_NAME", "meta-llama/Llama-2-7b-chat-hf")
	t.Setenv("VLLM_GATEWAY_SERVER_LISTEN_ADDRESS", "0.0.0.0:9000")
	t.Setenv("VLLM_GATEWAY_ENGINE_TIMEOUT", "3s")
	t.Setenv("VLLM_GATEWAY_AUDIT_ENABLED", "true")
	t.Setenv("VLLM_GATEWAY_AUDIT_BACKEND", "memory")
	t.Setenv("VLLM_GATEWAY_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")

	// A missing file is tolerated when the environment supplies everything.
	cfg, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.ServedName != "meta-llama/Llama-2-7b-chat-hf" {
		t.Errorf("served name = %q", cfg.Model.ServedName)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Engine.Timeout != 3*time.Second {
		t.Errorf("engine timeout = %v", cfg.Engine.Timeout)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Backend != "memory" {
		t.Errorf("audit = %+v", cfg.Audit)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("sample ratio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("VLLM_GATEWAY_MODEL_SERVED_NAME", "m")
	t.Setenv("VLLM_GATEWAY_ENGINE_MAX_RETRIES", "many")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.MaxRetries != DefaultEngineMaxRetries {
		t.Errorf("expected default retries to survive bad override, got %d", cfg.Engine.MaxRetries)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	t.Setenv("VLLM_GATEWAY_SERVER_LISTEN_ADDRESS", "0.0.0.0:9000")

	cfg, err := LoadWithOverrides("", func(c *Config) {
		c.Model.ServedName = "facebook/opt-125m"
		c.Server.ListenAddress = "127.0.0.1:8080"
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8080" {
		t.Errorf("override should win over the environment, got %q", cfg.Server.ListenAddress)
	}

	_, err = LoadWithOverrides("", func(c *Config) { c.Server.ListenAddress = "" })
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error after override, got %v", err)
	}
}

func TestSingleton(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	cfg := Default()
	cfg.Model.ServedName = "m"
	SetConfig(cfg)

	if got := MustGetConfig(); got != cfg {
		t.Errorf("MustGetConfig returned %p, want %p", got, cfg)
	}

	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected MustGetConfig to panic without configuration")
		}
	}()
	MustGetConfig()
}
