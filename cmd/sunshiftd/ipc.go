package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// External clients (sunshift-ctl, the tray menu, scripts) deliver override
// events as line-delimited JSON over a unix socket:
//
//   Client sends:    {"type": "force_on", "data": {"origin": "ctl"}}
//   Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
// ============================================================================

// IPCResponse is the acknowledgement sent back to IPC clients.
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // set when Status == "error"
}

// runIPCServer accepts connections until ctx is canceled, forwarding decoded
// events to the daemon's event channel.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// A stale socket from a crashed instance would block the listen.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Closing the listener unblocks Accept on shutdown.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, events, logger)
	}
}

func handleIPCConnection(conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(encoder, IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)}, logger)
			continue
		}

		select {
		case events <- ev:
			respond(encoder, IPCResponse{Status: "ok"}, logger)
		default:
			respond(encoder, IPCResponse{Status: "error", Error: "event queue full"}, logger)
		}
	}

	logger.Debug("IPC connection closed")
}

func respond(encoder *json.Encoder, resp IPCResponse, logger *slog.Logger) {
	if err := encoder.Encode(resp); err != nil {
		logger.Error("IPC failed to send response", "error", err)
	}
}

// runEventPump applies events from the IPC/UI surfaces to the override
// controller. This goroutine is the controller's single writer.
func runEventPump(ctx context.Context, events <-chan Event, overrides *OverrideController, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			now := time.Now()
			switch e := ev.(type) {
			case ForceOn:
				overrides.ForceOn(now)
			case ForceOff:
				overrides.ForceOff(now)
			case AutoMode:
				overrides.Auto(now)
			case Ping:
				logger.Debug("ping received")
			default:
				logger.Warn("unhandled event type", "event", fmt.Sprintf("%T", e))
			}
		}
	}
}

// SendIPCEvent delivers one event to a running daemon and waits for the
// acknowledgement. Used by client tooling and tests.
func SendIPCEvent(socketPath string, ev Event) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
