package expect

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// newPlainCommand returns ash without a pty, in a fresh home.
func newPlainCommand(t *testing.T, bin string, args ...string) *exec.Cmd {
	t.Helper()
	home := t.TempDir()
	cmd := exec.Command(bin, args...) //nolint:gosec // G204: binary built by the test
	cmd.Dir = home
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"XDG_DATA_HOME="+filepath.Join(home, ".local", "share"),
		"NO_COLOR=1",
	)
	return cmd
}
