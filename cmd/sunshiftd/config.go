package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level TOML configuration for the sunshift daemon.
//
// The config file is the primary configuration surface; flags exist for small
// overrides and for environments where a file is awkward. Defaults and
// validation are centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Temperature is the color temperature (Kelvin) passed to hyprsunset when
	// the filter is active.
	Temperature int `toml:"temperature"`

	// Observer position.
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Altitude  float64 `toml:"altitude"`

	// Timezone is an IANA zone name used for local day boundaries.
	// Empty means the system local zone.
	Timezone string `toml:"timezone,omitempty"`

	Driver  DriverConfig  `toml:"driver"`
	IPC     IPCConfig     `toml:"ipc"`
	State   StateConfig   `toml:"state"`
	Logging LoggingConfig `toml:"logging"`
}

type DriverConfig struct {
	// SocketPath overrides hyprsunset control socket discovery.
	SocketPath string `toml:"socket_path,omitempty"`
	TimeoutMS  int    `toml:"timeout_ms"`
}

type IPCConfig struct {
	SocketPath string `toml:"socket_path"`
}

type StateConfig struct {
	// Enabled toggles the state WebSocket feed for UI clients.
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type LoggingConfig struct {
	Level string `toml:"level"`

	// File: "auto" logs to $XDG_RUNTIME_DIR/sunshift.log alongside the
	// terminal, "none" disables the file, anything else is used as a path.
	File string `toml:"file"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Temperature: defaultTemperatureK,
		Latitude:    defaultLatitude,
		Longitude:   defaultLongitude,
		Altitude:    defaultAltitudeM,
		Timezone:    "",
		Driver: DriverConfig{
			SocketPath: "",
			TimeoutMS:  defaultDriverTimeoutMS,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		State: StateConfig{
			Enabled: true,
			Port:    defaultStateWSPort,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "auto",
		},
	}
}

// DefaultConfigPath is where the daemon looks without an explicit -config flag.
func DefaultConfigPath() string {
	return ExpandPath("~/.config/sunshift/config.toml")
}

// LoadConfigFile reads and parses a TOML config file on top of defaults.
// Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("decode config toml: unknown fields:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("decode config toml: %w", err)
	}

	return cfg, nil
}

// FlagOverrides applies flag values on top of a loaded config. Each override
// is applied only when its pointer is non-nil, so a config file stays the
// primary source while flags cover ad-hoc/systemd overrides.
type FlagOverrides struct {
	Temperature *int
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
	Timezone    *string

	DriverSocketPath *string
	DriverTimeoutMS  *int

	IPCSocketPath *string

	StateEnabled *bool
	StatePort    *int

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.Latitude != nil {
		cfg.Latitude = *o.Latitude
	}
	if o.Longitude != nil {
		cfg.Longitude = *o.Longitude
	}
	if o.Altitude != nil {
		cfg.Altitude = *o.Altitude
	}
	if o.Timezone != nil {
		cfg.Timezone = *o.Timezone
	}
	if o.DriverSocketPath != nil {
		cfg.Driver.SocketPath = *o.DriverSocketPath
	}
	if o.DriverTimeoutMS != nil {
		cfg.Driver.TimeoutMS = *o.DriverTimeoutMS
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateEnabled != nil {
		cfg.State.Enabled = *o.StateEnabled
	}
	if o.StatePort != nil {
		cfg.State.Port = *o.StatePort
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Called after defaults + file + overrides are applied. Failing here keeps
// the loop from ever starting.
func (c *Config) Validate() error {
	if c.Temperature < 1000 || c.Temperature > 10000 {
		return fmt.Errorf("temperature %d out of range [1000, 10000] Kelvin", c.Temperature)
	}
	if err := c.Location().Validate(); err != nil {
		return err
	}

	if c.Driver.TimeoutMS <= 0 {
		return errors.New("driver.timeout_ms must be > 0")
	}
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.State.Enabled && (c.State.Port <= 0 || c.State.Port > 65535) {
		return fmt.Errorf("state.port %d out of range [1, 65535]", c.State.Port)
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Location bundles the position fields.
func (c *Config) Location() Location {
	return Location{Latitude: c.Latitude, Longitude: c.Longitude, Altitude: c.Altitude}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
