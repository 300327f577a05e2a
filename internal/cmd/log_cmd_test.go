package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/ash/internal/config"
	"github.com/runger/ash/internal/storage"
)

func TestFormatDurationMs(t *testing.T) {
	tests := []struct {
		expected string
		ms       int64
	}{
		{"0ms", 0},
		{"999ms", 999},
		{"1.0s", 1000},
		{"1.5s", 1500},
		{"59.0s", 59000},
		{"1m0s", 60000},
		{"1m30s", 90000},
		{"60m0s", 3600000},
	}

	for _, tt := range tests {
		if got := formatDurationMs(tt.ms); got != tt.expected {
			t.Errorf("formatDurationMs(%d) = %q, want %q", tt.ms, got, tt.expected)
		}
	}
}

func TestLogCmd_Flags(t *testing.T) {
	expected := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"limit", "n", "20"},
		{"failed", "", "false"},
		{"session", "", ""},
		{"cwd", "", ""},
		{"top", "", "0"},
		{"format", "", "text"},
	}

	for _, f := range expected {
		flag := logCmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("Expected flag --%s to be registered", f.name)
			continue
		}
		assert.Equal(t, f.shorthand, flag.Shorthand, f.name)
		assert.Equal(t, f.def, flag.DefValue, f.name)
	}
}

// seedCommandLog creates the default command log database with two
// sessions and returns it open.
func seedCommandLog(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(config.DefaultPaths().DatabaseFile())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, id := range []string{"aaaa1111-session", "bbbb2222-session"} {
		require.NoError(t, store.CreateSession(ctx, &storage.Session{
			SessionID:       id,
			StartedAtUnixMs: 1700000000000,
			Shell:           "ash",
			OS:              "linux",
			InitialCWD:      "/home/user",
		}))
	}

	cmds := []struct {
		id, session, cwd, text string
		start                  int64
		exit                   int
	}{
		{"c1", "aaaa1111-session", "/tmp", "git status", 1000, 0},
		{"c2", "aaaa1111-session", "/work", "make test", 2000, 2},
		{"c3", "bbbb2222-session", "/work", "git diff", 3000, 0},
	}
	for _, c := range cmds {
		require.NoError(t, store.CreateCommand(ctx, &storage.Command{
			CommandID:     c.id,
			SessionID:     c.session,
			TSStartUnixMs: c.start,
			CWD:           c.cwd,
			Command:       c.text,
		}))
		require.NoError(t, store.UpdateCommandEnd(ctx, c.id, c.exit, c.start+1500, 1500))
	}
	return store
}

func runLogJSON(t *testing.T, args ...string) []logEntry {
	t.Helper()
	out, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, args)
	})
	require.NoError(t, err)

	var entries []logEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	return entries
}

func commandTexts(entries []logEntry) []string {
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		texts = append(texts, e.Command)
	}
	return texts
}

func TestRunLog_JSON(t *testing.T) {
	setupCmdEnv(t)
	seedCommandLog(t)

	tests := []struct {
		name string
		g    logGlobals
		args []string
		want []string
	}{
		{"all newest first", logGlobals{limit: 20}, nil, []string{"git diff", "make test", "git status"}},
		{"limit", logGlobals{limit: 1}, nil, []string{"git diff"}},
		{"failed", logGlobals{limit: 20, failed: true}, nil, []string{"make test"}},
		{"cwd", logGlobals{limit: 20, cwd: "/work"}, nil, []string{"git diff", "make test"}},
		{"session prefix", logGlobals{limit: 20, session: "aaaa"}, nil, []string{"make test", "git status"}},
		{"full session id", logGlobals{limit: 20, session: "bbbb2222-session"}, nil, []string{"git diff"}},
		{"substring", logGlobals{limit: 20}, []string{"GIT"}, []string{"git diff", "git status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.g.format = "json"
			withLogGlobals(t, tt.g)
			assert.Equal(t, tt.want, commandTexts(runLogJSON(t, tt.args...)))
		})
	}
}

func TestRunLog_JSONFields(t *testing.T) {
	setupCmdEnv(t)
	seedCommandLog(t)
	withLogGlobals(t, logGlobals{limit: 1, format: "json", failed: true})

	entries := runLogJSON(t)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "c2", e.ID)
	assert.Equal(t, "aaaa1111-session", e.SessionID)
	assert.Equal(t, "/work", e.CWD)
	require.NotNil(t, e.ExitCode)
	assert.Equal(t, 2, *e.ExitCode)
	require.NotNil(t, e.DurationMs)
	assert.Equal(t, int64(1500), *e.DurationMs)
}

func TestRunLog_Text(t *testing.T) {
	setupCmdEnv(t)
	seedCommandLog(t)
	withLogGlobals(t, logGlobals{limit: 20})

	out, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, nil)
	})
	require.NoError(t, err)

	// Oldest first.
	first := strings.Index(out, "git status")
	last := strings.Index(out, "git diff")
	require.True(t, first >= 0 && last >= 0, out)
	assert.Less(t, first, last)
	assert.Contains(t, out, "[2]  make test  (1.5s)")
	assert.Contains(t, out, "Showing 3 command(s)")
}

func TestRunLog_Top(t *testing.T) {
	setupCmdEnv(t)
	seedCommandLog(t)
	withLogGlobals(t, logGlobals{limit: 20, top: 5})

	out, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, nil)
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "      2  git", lines[0])
	assert.Equal(t, "      1  make", lines[1])
}

func TestRunLog_UnknownSession(t *testing.T) {
	setupCmdEnv(t)
	seedCommandLog(t)
	withLogGlobals(t, logGlobals{limit: 20, session: "zzzz"})

	_, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, nil)
	})
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestRunLog_NoDatabase(t *testing.T) {
	setupCmdEnv(t)
	withLogGlobals(t, logGlobals{limit: 20})

	out, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No command log available")
}

func TestRunLog_InvalidFormat(t *testing.T) {
	setupCmdEnv(t)
	withLogGlobals(t, logGlobals{limit: 20, format: "xml"})

	_, err := runWithOutput(t, logCmd, func(c *cobra.Command) error {
		return runLog(c, nil)
	})
	require.Error(t, err)
}

func TestPrintCommand_Truncates(t *testing.T) {
	disableColors()
	t.Cleanup(func() {
		if !shouldDisableColors() {
			enableColors()
		}
	})

	exit := 0
	c := storage.Command{
		TSStartUnixMs: 1700000000000,
		Command:       strings.Repeat("x", 200),
		ExitCode:      &exit,
	}

	var buf bytes.Buffer
	printCommand(&buf, c, 60)
	line := strings.TrimSuffix(buf.String(), "\n")
	assert.Equal(t, 60, len([]rune(line)))
	assert.True(t, strings.HasSuffix(line, "…"), line)
}

func TestPrintCommand_Running(t *testing.T) {
	disableColors()
	t.Cleanup(func() {
		if !shouldDisableColors() {
			enableColors()
		}
	})

	var buf bytes.Buffer
	printCommand(&buf, storage.Command{TSStartUnixMs: 1700000000000, Command: "sleep 5"}, 200)
	assert.Contains(t, buf.String(), "[-]  sleep 5")
}
