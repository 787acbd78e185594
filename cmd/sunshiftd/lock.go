package main

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// runtimeLock is the single-instance guard: an exclusive flock on a lock file
// in the runtime directory. A second daemon instance fails fast instead of
// fighting the first one over the filter state.
type runtimeLock struct {
	f    *os.File
	path string
}

// lockFilePath places the lock in $XDG_RUNTIME_DIR, falling back to the
// system temp dir when the session has none.
func lockFilePath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sunshift.lock")
}

// acquireRuntimeLock takes the exclusive lock, non-blocking.
func acquireRuntimeLock(path string) (*runtimeLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another instance is running (lock %s held): %w", path, err)
	}

	// Record the holder for debugging; the flock is the actual guard.
	_ = f.Truncate(0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	return &runtimeLock{f: f, path: path}, nil
}

// Release drops the lock and removes the file.
func (l *runtimeLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	removeErr := os.Remove(l.path)
	l.f = nil

	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}
