package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ============================================================================
// Filter Driver - hyprsunset client
// ============================================================================
// hyprsunset exposes a line-oriented control socket in the Hyprland runtime
// directory. Commands used here:
//
//   temperature <kelvin>   apply the filter at the given color temperature
//   identity               restore neutral color temperature
//
// Each command dials a fresh connection with a short deadline; hyprsunset
// holds no session state, and a stale connection would otherwise mask the
// compositor restarting underneath us.
// ============================================================================

// FilterDriver applies or clears the blue-light filter. Both operations may
// fail when the external tool is unavailable; callers treat that as
// recoverable.
type FilterDriver interface {
	Apply(temperature int) error
	Clear() error
}

// HyprsunsetClient is the production FilterDriver.
type HyprsunsetClient struct {
	socketPath string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewHyprsunsetClient(socketPath string, timeoutMS int, logger *slog.Logger) *HyprsunsetClient {
	if timeoutMS <= 0 {
		timeoutMS = defaultDriverTimeoutMS
	}
	return &HyprsunsetClient{
		socketPath: socketPath,
		timeout:    time.Duration(timeoutMS) * time.Millisecond,
		logger:     logger,
	}
}

// Apply activates the filter at the given color temperature (Kelvin).
func (c *HyprsunsetClient) Apply(temperature int) error {
	return c.send(fmt.Sprintf("temperature %d", temperature))
}

// Clear restores the display to neutral color temperature.
func (c *HyprsunsetClient) Clear() error {
	return c.send("identity")
}

func (c *HyprsunsetClient) send(command string) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("connect to hyprsunset socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set socket deadline: %w", err)
	}

	if _, err := conn.Write([]byte(command)); err != nil {
		return fmt.Errorf("send %q to hyprsunset: %w", command, err)
	}

	c.logger.Debug("hyprsunset command sent", "command", command)
	return nil
}

// DiscoverHyprsunsetSocket derives the control socket path from the Hyprland
// session environment. Used when driver.socket_path is not configured.
func DiscoverHyprsunsetSocket() (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", errors.New("HYPRLAND_INSTANCE_SIGNATURE not set")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "hypr", sig, ".hyprsunset.sock"), nil
}

// VerifyHyprsunsetInstalled checks that the hyprsunset binary is on PATH.
func VerifyHyprsunsetInstalled() error {
	if _, err := exec.LookPath("hyprsunset"); err != nil {
		return fmt.Errorf("hyprsunset is not installed: %w", err)
	}
	return nil
}

// WaitForSocket polls until the socket file exists, giving hyprsunset time to
// start up. Bounded; returns an error when the socket never appears.
func WaitForSocket(path string, tries int, delay time.Duration, logger *slog.Logger) error {
	for i := 0; i < tries; i++ {
		if _, err := os.Stat(path); err == nil {
			logger.Debug("hyprsunset socket present", "path", path)
			return nil
		}
		logger.Info("waiting for hyprsunset socket", "path", path, "attempt", i+1, "of", tries)
		time.Sleep(delay)
	}
	return fmt.Errorf("hyprsunset did not create socket %s", path)
}
