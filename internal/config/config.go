// Package config loads graphcalc's JSONC configuration.
package config

// Config is the root configuration.
type Config struct {
	Storage     StorageConfig     `json:"storage"`
	Session     SessionConfig     `json:"session"`
	Plot        PlotConfig        `json:"plot"`
	Integration IntegrationConfig `json:"integration"`
	Gateway     GatewayConfig     `json:"gateway"`
	Events      EventsConfig      `json:"events"`
	Log         LogConfig         `json:"log"`
}

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// StorageConfig selects and configures the record backend.
type StorageConfig struct {
	Driver string `json:"driver"` // file | sqlite | badger
	// Dir holds the records. For sqlite it is the directory of records.db.
	Dir             string `json:"dir"`
	EncryptProfiles bool   `json:"encrypt_profiles"`
	KeyPath         string `json:"key_path"`
}

type SessionConfig struct {
	Name string `json:"name"`
}

// PlotConfig sets default sample counts.
type PlotConfig struct {
	Samples2D int `json:"samples_2d"`
	Samples3D int `json:"samples_3d"` // per axis
}

type IntegrationConfig struct {
	Tolerance float64 `json:"tolerance"`
	MaxDepth  int     `json:"max_depth"`
	MaxEvals  int     `json:"max_evals"`
}

// GatewayConfig configures the HTTP/WebSocket server.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

type LogConfig struct {
	Level string `json:"level"` // debug | info | warn | error
}
