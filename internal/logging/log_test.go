package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultConfig(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, New(nil))
}

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Level: slog.LevelInfo})

	logger.Info("test message", "key", "value")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Contains(t, entry, "ts")
	assert.Contains(t, entry, "level")
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNew_DebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Debug: true})
	logger.Debug("debug message")

	assert.Contains(t, buf.String(), "debug message")
}

func TestNew_InfoLevel_HidesDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf, Level: slog.LevelInfo})
	logger.Debug("debug message")

	assert.NotContains(t, buf.String(), "debug message")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "ash.log")
	logger, closer, err := OpenFile(path, "info", false)
	require.NoError(t, err)

	LogStartup(logger, StartupInfo{Version: "1.0.0", SessionID: "abc", PID: 42})
	LogSQLiteError(logger, "insert", errors.New("disk full"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shell started"`)
	assert.Contains(t, string(data), `"session_id":"abc"`)
	assert.Contains(t, string(data), `"error":"disk full"`)
}

func TestOpenFile_BadLevel(t *testing.T) {
	t.Parallel()

	_, _, err := OpenFile(filepath.Join(t.TempDir(), "x.log"), "chatty", false)
	assert.Error(t, err)
}

func TestOrDiscard(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrDiscard(nil))

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf})
	assert.Same(t, logger, OrDiscard(logger))
}
