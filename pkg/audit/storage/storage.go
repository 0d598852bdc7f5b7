// Package storage provides audit record backends.
package storage

import (
	"fmt"

	"github.com/runpod/vllm/pkg/audit"
	"github.com/runpod/vllm/pkg/config"
)

// New opens the backend selected by cfg.Backend.
func New(cfg *config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "", "sqlite":
		return NewSQLiteStorage(&cfg.SQLite)
	default:
		return nil, audit.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown backend %q", cfg.Backend))
	}
}
