package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

// TestDefaultConfig_Valid checks the built-in defaults pass validation.
func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.State.Enabled {
		t.Error("expected state feed enabled by default")
	}
	if cfg.Temperature != defaultTemperatureK {
		t.Errorf("expected default temperature %d, got %d", defaultTemperatureK, cfg.Temperature)
	}
}

// TestLoadConfigFile_PartialOverridesDefaults checks a sparse file keeps
// defaults for everything it does not mention.
func TestLoadConfigFile_PartialOverridesDefaults(t *testing.T) {
	path := writeTestConfig(t, `
temperature = 2700
latitude = 52.52
longitude = 13.405
altitude = 34.0

[logging]
level = "debug"
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}

	if cfg.Temperature != 2700 {
		t.Errorf("temperature = %d, want 2700", cfg.Temperature)
	}
	if cfg.Latitude != 52.52 || cfg.Longitude != 13.405 || cfg.Altitude != 34.0 {
		t.Errorf("position not loaded: %+v", cfg.Location())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}

	// Untouched sections keep their defaults.
	if cfg.IPC.SocketPath != defaultIPCSocketPath {
		t.Errorf("ipc.socket_path = %q, want default", cfg.IPC.SocketPath)
	}
	if cfg.State.Port != defaultStateWSPort {
		t.Errorf("state.port = %d, want default", cfg.State.Port)
	}
	if cfg.Driver.TimeoutMS != defaultDriverTimeoutMS {
		t.Errorf("driver.timeout_ms = %d, want default", cfg.Driver.TimeoutMS)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

// TestLoadConfigFile_UnknownFieldRejected checks typos fail loudly instead of
// being silently ignored.
func TestLoadConfigFile_UnknownFieldRejected(t *testing.T) {
	path := writeTestConfig(t, `
temprature = 2700
`)

	_, err := LoadConfigFile(path)
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
	if !strings.Contains(err.Error(), "unknown fields") && !strings.Contains(err.Error(), "decode config") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoadConfigFile_Missing checks a nonexistent path surfaces an error the
// caller can inspect.
func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

// TestFlagOverrides_Apply checks only set pointers override the config.
func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	temp := 2500
	tz := "Europe/Berlin"
	disabled := false
	overrides := FlagOverrides{
		Temperature:  &temp,
		Timezone:     &tz,
		StateEnabled: &disabled,
	}
	overrides.Apply(&cfg)

	if cfg.Temperature != 2500 {
		t.Errorf("temperature = %d, want 2500", cfg.Temperature)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q, want Europe/Berlin", cfg.Timezone)
	}
	if cfg.State.Enabled {
		t.Error("expected state disabled by override")
	}

	// Untouched fields stay at defaults.
	if cfg.Latitude != defaultLatitude {
		t.Errorf("latitude changed without an override: %v", cfg.Latitude)
	}
}

// TestConfig_Validate covers the rejection cases.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"temperature too low", func(c *Config) { c.Temperature = 500 }, "temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 20000 }, "temperature"},
		{"latitude out of range", func(c *Config) { c.Latitude = 95 }, "latitude"},
		{"longitude out of range", func(c *Config) { c.Longitude = -200 }, "longitude"},
		{"altitude out of range", func(c *Config) { c.Altitude = 12000 }, "altitude"},
		{"zero driver timeout", func(c *Config) { c.Driver.TimeoutMS = 0 }, "timeout_ms"},
		{"empty ipc socket", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
		{"bad state port", func(c *Config) { c.State.Port = 0 }, "state.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errSub)
			}
		})
	}
}

// TestConfig_StatePortIgnoredWhenDisabled checks the port range only matters
// when the feed is on.
func TestConfig_StatePortIgnoredWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.State.Enabled = false
	cfg.State.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config with state disabled, got %v", err)
	}
}
