package main

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeHyprsunsetSocket accepts connections on a unix socket and records every
// command line it receives.
type fakeHyprsunsetSocket struct {
	listener net.Listener

	mu       sync.Mutex
	commands []string
}

func newFakeHyprsunsetSocket(t *testing.T) (*fakeHyprsunsetSocket, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hs.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen on fake socket: %v", err)
	}

	f := &fakeHyprsunsetSocket{listener: l}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			// Read synchronously so recorded order matches connection
			// order; a goroutine per connection can record out of order.
			buf := make([]byte, 256)
			n, err := conn.Read(buf)
			conn.Close()
			if err != nil {
				continue
			}
			f.mu.Lock()
			f.commands = append(f.commands, string(buf[:n]))
			f.mu.Unlock()
		}
	}()

	t.Cleanup(func() { l.Close() })
	return f, path
}

func (f *fakeHyprsunsetSocket) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// TestHyprsunsetClient_Commands checks the exact command strings written to
// the control socket.
func TestHyprsunsetClient_Commands(t *testing.T) {
	fake, path := newFakeHyprsunsetSocket(t)
	client := NewHyprsunsetClient(path, 500, testLogger())

	if err := client.Apply(3000); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := client.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	waitUntil(t, time.Second, func() bool {
		return len(fake.received()) == 2
	}, "expected two recorded commands")

	got := fake.received()
	if got[0] != "temperature 3000" {
		t.Errorf("first command = %q, want %q", got[0], "temperature 3000")
	}
	if got[1] != "identity" {
		t.Errorf("second command = %q, want %q", got[1], "identity")
	}
}

// TestHyprsunsetClient_ConnectFailure checks a missing socket produces an
// error instead of hanging.
func TestHyprsunsetClient_ConnectFailure(t *testing.T) {
	client := NewHyprsunsetClient(filepath.Join(t.TempDir(), "absent.sock"), 100, testLogger())

	if err := client.Apply(3000); err == nil {
		t.Error("expected Apply to fail without a socket")
	}
	if err := client.Clear(); err == nil {
		t.Error("expected Clear to fail without a socket")
	}
}

// TestDiscoverHyprsunsetSocket checks the session environment derivation.
func TestDiscoverHyprsunsetSocket(t *testing.T) {
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	path, err := DiscoverHyprsunsetSocket()
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	want := "/run/user/1000/hypr/abc123/.hyprsunset.sock"
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	if _, err := DiscoverHyprsunsetSocket(); err == nil {
		t.Error("expected an error without a Hyprland session")
	}
}

// TestWaitForSocket checks both the present and never-appears cases.
func TestWaitForSocket(t *testing.T) {
	dir := t.TempDir()

	present := filepath.Join(dir, "present.sock")
	if err := os.WriteFile(present, nil, 0644); err != nil {
		t.Fatalf("create marker file: %v", err)
	}
	if err := WaitForSocket(present, 3, time.Millisecond, testLogger()); err != nil {
		t.Errorf("expected success for an existing path, got %v", err)
	}

	absent := filepath.Join(dir, "absent.sock")
	if err := WaitForSocket(absent, 2, time.Millisecond, testLogger()); err == nil {
		t.Error("expected an error for a path that never appears")
	}
}
