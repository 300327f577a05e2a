package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

type logGlobals struct {
	session string
	cwd     string
	format  string
	limit   int
	top     int
	failed  bool
}

// setupCmdEnv points every ash path at a fresh temp directory and turns
// colors off. It returns the directory.
func setupCmdEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("ASH_HISTFILE", "")
	t.Setenv("ASH_DEBUG", "")
	t.Setenv("ASH_LOG_LEVEL", "")

	oldCfg, oldHist, oldDebug, oldNoColor := cfgFile, historyFile, debugFlag, noColorFlag
	cfgFile, historyFile, debugFlag, noColorFlag = "", "", false, false

	disableColors()
	t.Cleanup(func() {
		cfgFile, historyFile, debugFlag, noColorFlag = oldCfg, oldHist, oldDebug, oldNoColor
		if !shouldDisableColors() {
			enableColors()
		}
	})
	return root
}

func withLogGlobals(t *testing.T, g logGlobals) {
	t.Helper()
	old := logGlobals{
		session: logSession,
		cwd:     logCWD,
		format:  logFormat,
		limit:   logLimit,
		top:     logTop,
		failed:  logFailed,
	}
	logSession, logCWD, logFormat = g.session, g.cwd, g.format
	logLimit, logTop, logFailed = g.limit, g.top, g.failed
	if logFormat == "" {
		logFormat = "text"
	}

	t.Cleanup(func() {
		logSession, logCWD, logFormat = old.session, old.cwd, old.format
		logLimit, logTop, logFailed = old.limit, old.top, old.failed
	})
}

// runWithOutput runs fn with c's output captured.
func runWithOutput(t *testing.T, c *cobra.Command, fn func(*cobra.Command) error) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	t.Cleanup(func() { c.SetOut(nil) })

	err := fn(c)
	return buf.String(), err
}
