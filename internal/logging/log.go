// Package logging provides JSON-lines structured logging for ash.
//
// The interactive terminal belongs to the user, so the shell logs to a file
// under the data directory rather than to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelInfo,
		Debug:  false,
	}
}

// New creates a new JSON-lines structured logger. Records look like:
//
//	{"ts":"2024-01-15T10:30:00Z","level":"INFO","msg":"shell started","session_id":"..."}
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

// OpenFile creates a logger appending to path. The returned closer must be
// called on shutdown.
func OpenFile(path, level string, debug bool) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(&Config{Output: f, Level: lvl, Debug: debug}), f, nil
}

// StartupInfo holds information to log at shell startup.
type StartupInfo struct {
	Version     string
	SessionID   string
	ConfigPath  string
	HistoryPath string
	CommandLog  string
	PID         int
}

// LogStartup logs shell startup information.
func LogStartup(logger *slog.Logger, info StartupInfo) {
	logger.Info("shell started",
		"version", info.Version,
		"session_id", info.SessionID,
		"config_path", info.ConfigPath,
		"history_path", info.HistoryPath,
		"commandlog_path", info.CommandLog,
		"pid", info.PID,
	)
}

// LogShutdown logs shell shutdown.
func LogShutdown(logger *slog.Logger, reason string) {
	logger.Info("shell shutting down", "reason", reason)
}

// LogSQLiteError logs SQLite errors.
func LogSQLiteError(logger *slog.Logger, operation string, err error) {
	logger.Error("sqlite error", "operation", operation, "error", err)
}
