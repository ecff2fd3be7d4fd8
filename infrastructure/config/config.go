package config

import (
	"fmt"
	"sync"
)

var (
	mu       sync.Mutex
	instance *Config
	loaded   bool
)

// Load loads configuration from environment variables and .env files.
// Subsequent calls return the cached configuration.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return instance, nil
	}

	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	instance = cfg
	loaded = true
	return cfg, nil
}

// IsLoaded returns whether configuration has been loaded
func IsLoaded() bool {
	mu.Lock()
	defer mu.Unlock()
	return loaded
}

// Reset clears the cached configuration (used by tests)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	loaded = false
}
