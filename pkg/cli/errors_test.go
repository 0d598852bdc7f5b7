package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{
			err:  &ConfigError{Field: "model.served_name", Message: "served model name is required"},
			want: "config error in model.served_name: served model name is required",
		},
		{
			err:  NewConfigError("", "failed to load config"),
			want: "config error: failed to load config",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := errors.New("engine unavailable")
	err := NewCommandError("queue", underlying)

	if err.Error() != "command queue failed: engine unavailable" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("server.listen_address", "required"), ExitConfig},
		{"wrapped config", fmt.Errorf("run: %w", NewConfigError("", "bad")), ExitConfig},
		{"command", NewCommandError("run", errors.New("boom")), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
