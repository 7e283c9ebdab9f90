package config

import (
	"os"
	"path/filepath"
)

// GraphcalcPath returns the root directory for graphcalc data.
// It uses $GRAPHCALC_PATH if set, otherwise defaults to ~/.graphcalc.
func GraphcalcPath() string {
	if v := os.Getenv("GRAPHCALC_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".graphcalc")
	}
	return filepath.Join(home, ".graphcalc")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(GraphcalcPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(GraphcalcPath(), ".env")
}

// JournalPath returns the directory of the event journal.
func JournalPath() string {
	return filepath.Join(GraphcalcPath(), "journal")
}

// HeartbeatPath returns the gateway liveness file.
func HeartbeatPath() string {
	return filepath.Join(GraphcalcPath(), "heartbeat.json")
}
