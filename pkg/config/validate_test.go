package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Model.ServedName = "lmsys/vicuna-7b-v1.5"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default config should be valid, got %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "empty listen address",
			mutate: func(c *Config) { c.Server.ListenAddress = "" },
			field:  "server.listen_address",
		},
		{
			name:   "tls without cert",
			mutate: func(c *Config) { c.Server.TLS.Enabled = true; c.Server.TLS.KeyFile = "k.pem" },
			field:  "server.tls.cert_file",
		},
		{
			name:   "bad tls version",
			mutate: func(c *Config) { c.Server.TLS.MinVersion = "1.0" },
			field:  "server.tls.min_version",
		},
		{
			name:   "blank served name",
			mutate: func(c *Config) { c.Model.ServedName = "  " },
			field:  "model.served_name",
		},
		{
			name:   "watch without file",
			mutate: func(c *Config) { c.Model.WatchTemplates = true },
			field:  "model.watch_templates",
		},
		{
			name:   "engine url without host",
			mutate: func(c *Config) { c.Engine.BaseURL = "http://" },
			field:  "engine.base_url",
		},
		{
			name:   "too many retries",
			mutate: func(c *Config) { c.Engine.MaxRetries = 11 },
			field:  "engine.max_retries",
		},
		{
			name:   "negative max n",
			mutate: func(c *Config) { c.Engine.MaxN = -1 },
			field:  "engine.max_n",
		},
		{
			name:   "unknown encoding",
			mutate: func(c *Config) { c.Tokenizer.Encoding = "gpt2" },
			field:  "tokenizer.encoding",
		},
		{
			name:   "unknown audit backend",
			mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.Backend = "postgres" },
			field:  "audit.backend",
		},
		{
			name:   "unknown sqlite driver",
			mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.SQLite.Driver = "cgo" },
			field:  "audit.sqlite.driver",
		},
		{
			name:   "bad cron schedule",
			mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.Retention.PruneSchedule = "every day" },
			field:  "audit.retention.prune_schedule",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			field:  "telemetry.logging.level",
		},
		{
			name:   "sample ratio above one",
			mutate: func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			field:  "telemetry.tracing.sample_ratio",
		},
		{
			name:   "relative readiness path",
			mutate: func(c *Config) { c.Telemetry.Health.ReadinessPath = "ready" },
			field:  "telemetry.health.readiness_path",
		},
		{
			name:   "negative poll interval",
			mutate: func(c *Config) { c.Queue.PollInterval = -1 },
			field:  "queue.poll_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidate_AuditDisabledSkipsChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Backend = "postgres"
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled audit should not be validated, got %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("single error = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("multi error = %q", got)
	}
}
