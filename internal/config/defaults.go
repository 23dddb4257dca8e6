// Package config defines taskflow's typed configuration and its defaults.
package config

const (
	// DefaultDataDir is the local data directory name.
	DefaultDataDir = ".taskflow"

	// DefaultDataFile is the SQLite database file inside the data directory.
	DefaultDataFile = "taskflow.db"

	DefaultServerPort     = 5080
	DefaultAllowedOrigins = "http://localhost:4200"
	DefaultServerMode     = "release"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMaxRequirementLength = 500
)
