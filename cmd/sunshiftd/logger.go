package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogLevel represents the available logging levels.
type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// parseLogLevel converts a string to a LogLevel.
func parseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}
}

// resolveLogFile turns the logging.file config value into a concrete path.
// "auto" picks $XDG_RUNTIME_DIR/sunshift.log when the runtime dir exists;
// "none" (or "auto" without a runtime dir) disables file logging.
func resolveLogFile(configured string) string {
	switch configured {
	case "none", "":
		return ""
	case "auto":
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir == "" {
			return ""
		}
		return filepath.Join(runtimeDir, "sunshift.log")
	default:
		return ExpandPath(configured)
	}
}

// setupLogger creates a slog logger writing to stdout and, when logFile is
// non-empty, a log file as well. The returned closer flushes the file on
// shutdown; it is safe to call when no file was opened.
func setupLogger(level LogLevel, logFile string) (*slog.Logger, func()) {
	var slogLevel slog.Level
	switch level {
	case LogLevelError:
		slogLevel = slog.LevelError
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	w := io.Writer(os.Stdout)
	closer := func() {}

	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", logFile, err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
			closer = func() { _ = f.Close() }
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
	return slog.New(handler), closer
}
