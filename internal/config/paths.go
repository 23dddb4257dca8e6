package config

import (
	"os"
	"path/filepath"
)

// GetGlobalDataDir returns ~/.taskflow. It's a variable so tests can override it.
var GetGlobalDataDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDataDir), nil
}

// GetDataBasePath returns the data directory.
// Resolution order (first match wins):
// 1. Explicit data.dir
// 2. Local project directory: ./.taskflow (if it exists)
// 3. $XDG_DATA_HOME/taskflow
// 4. ~/.taskflow
func GetDataBasePath(cfg *AppConfig) string {
	if cfg != nil && cfg.Data.Dir != "" {
		return cfg.Data.Dir
	}

	if info, err := os.Stat(DefaultDataDir); err == nil && info.IsDir() {
		return DefaultDataDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskflow")
	}

	dir, err := GetGlobalDataDir()
	if err != nil {
		return DefaultDataDir
	}
	return dir
}
