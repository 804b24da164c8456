package config

import (
	"fmt"
	"sync"
)

// active holds the process-wide configuration once Initialize succeeds.
// Guarded by activeMu; initOnce makes Initialize single-shot.
var (
	active   *Config
	activeMu sync.RWMutex
	initOnce sync.Once
)

// Initialize loads configuration from the given path, applies environment
// variable overrides, and installs the result as the process-wide
// configuration. It is single-shot: only the first call loads, later calls
// return immediately. Call this once during startup, before anything reads
// the active configuration.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		Replace(cfg)
	})

	return initErr
}

// Active returns the process-wide configuration, or nil before a successful
// Initialize. Safe for concurrent use.
//
// Components should prefer receiving a *Config (or their own section) at
// construction; Active exists for callers wired before dependency injection
// reaches them, such as command entry points.
func Active() *Config {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// MustActive returns the process-wide configuration and panics when it has
// not been initialized. Reserve it for paths that run strictly after a
// successful startup.
func MustActive() *Config {
	cfg := Active()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// Replace installs cfg as the process-wide configuration. Tests use it to
// inject fixtures without touching the filesystem; production code should go
// through Initialize or Reload.
func Replace(cfg *Config) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = cfg
}

// Reload loads the file at path again and swaps the active configuration.
// The previous configuration stays in effect when loading or validation
// fails.
func Reload(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	Replace(cfg)
	return nil
}
