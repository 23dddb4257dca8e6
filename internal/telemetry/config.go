// Package telemetry reports anonymous workflow usage to PostHog.
//
// Nothing is sent unless telemetry.enabled is set and an API key is
// configured. Events carry the operation kind, the task type and whether the
// transition was accepted; requirement text and user ids are never sent.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StateFileName holds the anonymous installation ID inside the data directory.
const StateFileName = "telemetry.json"

// Config holds the telemetry state.
type Config struct {
	// Enabled comes from application config and is not persisted.
	Enabled bool `json:"-"`

	// AnonymousID is a random UUID generated once per data directory.
	AnonymousID string `json:"anonymous_id"`
}

// Load reads the telemetry state from dir, generating and saving an anonymous
// ID on first use.
func Load(dir string, enabled bool) (*Config, error) {
	path := filepath.Join(dir, StateFileName)
	cfg := &Config{Enabled: enabled}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse telemetry state: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read telemetry state: %w", err)
	}

	if cfg.AnonymousID == "" {
		cfg.AnonymousID = uuid.New().String()
		if err := cfg.Save(dir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save writes the state file with owner-only permissions.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create telemetry directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal telemetry state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, StateFileName), data, 0600); err != nil {
		return fmt.Errorf("write telemetry state: %w", err)
	}
	return nil
}

// IsEnabled reports whether events should be sent.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}
