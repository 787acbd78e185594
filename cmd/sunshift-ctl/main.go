package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// sunshift-ctl - Command-line IPC Client
// ============================================================================
// This tool sends override commands to the sunshiftd daemon via IPC.
//
// Usage:
//   sunshift-ctl force-on
//   sunshift-ctl force-off
//   sunshift-ctl auto
//   sunshift-ctl ping
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/sunshift.sock)
// ============================================================================

// Event types (duplicated from the daemon package for a standalone binary)
type Event interface{}

type ForceOn struct {
	Origin string `json:"origin,omitempty"`
}

type ForceOff struct {
	Origin string `json:"origin,omitempty"`
}

type AutoMode struct {
	Origin string `json:"origin,omitempty"`
}

type Ping struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/sunshift.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var event Event

	switch args[0] {
	case "force-on", "on":
		event = ForceOn{Origin: "ctl"}

	case "force-off", "off":
		event = ForceOff{Origin: "ctl"}

	case "auto", "reset":
		event = AutoMode{Origin: "ctl"}

	case "ping":
		event = Ping{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendEvent(socketPath, event); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func sendEvent(socketPath string, event Event) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalEvent(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalEvent(event Event) ([]byte, error) {
	var env EventEnvelope

	switch e := event.(type) {
	case ForceOn:
		env.Type = "force_on"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ForceOn: %w", err)
		}
		env.Data = data

	case ForceOff:
		env.Type = "force_off"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ForceOff: %w", err)
		}
		env.Data = data

	case AutoMode:
		env.Type = "auto"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal AutoMode: %w", err)
		}
		env.Data = data

	case Ping:
		env.Type = "ping"

	default:
		return nil, fmt.Errorf("unknown event type: %T", event)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `sunshift-ctl - Control the sunshiftd daemon via IPC

Usage:
  sunshift-ctl [options] <command>

Options:
  -socket PATH    Unix domain socket path (default: /tmp/sunshift.sock)

Commands:
  force-on, on       Pin the blue-light filter on until local midnight
  force-off, off     Pin the blue-light filter off until local midnight
  auto, reset        Clear any override, return to the solar schedule
  ping               Check that the daemon is reachable
  help, -h, --help   Show this help message

Examples:
  sunshift-ctl force-on
  sunshift-ctl auto
  sunshift-ctl -socket /run/user/1000/sunshift.sock ping
`)
}
