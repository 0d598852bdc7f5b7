package config

import "sync"

var (
	current   *Config
	currentMu sync.RWMutex
	initOnce  sync.Once
)

// Initialize loads configuration from path with environment overrides and
// installs it as the process-wide configuration. Only the first call loads;
// later calls return nil without reloading.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration. Tests use it to inject
// a Config without touching the filesystem.
func SetConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}

// MustGetConfig returns the process-wide configuration and panics if
// Initialize has not succeeded.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
