// Package expect drives the ash binary inside a pseudo terminal using
// go-expect. The tests build the binary once; set ASH_BIN to use a prebuilt
// one instead.
package expect

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
)

// Key sequences sent by a terminal.
const (
	KeyRight  = "\x1b[C"
	KeyLeft   = "\x1b[D"
	KeyUp     = "\x1b[A"
	KeyDown   = "\x1b[B"
	KeyEscape = "\x1b"
	KeyEnter  = "\r"
	KeyTab    = "\t"
	KeyCtrlC  = "\x03"
	KeyCtrlD  = "\x04"
	KeyCtrlR  = "\x12"
	KeyCtrlU  = "\x15"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// Binary returns the path of the ash binary under test, building it on
// first use.
func Binary(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("ASH_BIN"); p != "" {
		return p
	}

	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "ash-expect-")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "ash")
		out, err := exec.Command("go", "build", "-o", binPath, "github.com/runger/ash/cmd/ash").CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build: %w\n%s", err, out)
		}
	})
	if buildErr != nil {
		t.Skipf("ash binary unavailable: %v", buildErr)
	}
	return binPath
}

// Session is a running ash process attached to a pty.
type Session struct {
	Console *expect.Console
	Home    string
	WorkDir string
	Timeout time.Duration
	cmd     *exec.Cmd
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	timeout    time.Duration
	env        []string
	args       []string
	home       string
	history    []string
	showOutput bool
}

// WithTimeout sets the default timeout for expect operations.
func WithTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.timeout = d
	}
}

// WithEnv adds environment variables to the process.
func WithEnv(env ...string) SessionOption {
	return func(c *sessionConfig) {
		c.env = append(c.env, env...)
	}
}

// WithArgs adds command-line arguments.
func WithArgs(args ...string) SessionOption {
	return func(c *sessionConfig) {
		c.args = append(c.args, args...)
	}
}

// WithHome reuses an existing home directory, e.g. from an earlier session.
func WithHome(dir string) SessionOption {
	return func(c *sessionConfig) {
		c.home = dir
	}
}

// WithHistory seeds the history file before start.
func WithHistory(lines ...string) SessionOption {
	return func(c *sessionConfig) {
		c.history = append(c.history, lines...)
	}
}

// WithOutput copies the terminal output to stdout for debugging.
func WithOutput(show bool) SessionOption {
	return func(c *sessionConfig) {
		c.showOutput = show
	}
}

// NewSession starts ash in a fresh home directory. Its working directory
// is $HOME/work, so the prompt reads " work ".
func NewSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()

	cfg := &sessionConfig{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	bin := Binary(t)
	if cfg.home == "" {
		cfg.home = t.TempDir()
	}
	work := filepath.Join(cfg.home, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	if len(cfg.history) > 0 {
		var data []byte
		for _, l := range cfg.history {
			data = append(data, l...)
			data = append(data, '\n')
		}
		if err := os.WriteFile(HistoryFile(cfg.home), data, 0o600); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	consoleOpts := []expect.ConsoleOpt{expect.WithDefaultTimeout(cfg.timeout)}
	if cfg.showOutput {
		consoleOpts = append(consoleOpts, expect.WithStdout(os.Stdout))
	}
	console, err := expect.NewConsole(consoleOpts...)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}

	cmd := exec.Command(bin, cfg.args...) //nolint:gosec // G204: binary built by the test
	cmd.Dir = work
	cmd.Stdin = console.Tty()
	cmd.Stdout = console.Tty()
	cmd.Stderr = console.Tty()
	cmd.Env = append(os.Environ(),
		"HOME="+cfg.home,
		"XDG_CONFIG_HOME="+filepath.Join(cfg.home, ".config"),
		"XDG_DATA_HOME="+filepath.Join(cfg.home, ".local", "share"),
		"XDG_CACHE_HOME="+filepath.Join(cfg.home, ".cache"),
		"ASH_HISTFILE=",
		"NO_COLOR=1",
		"TERM=xterm-256color",
	)
	cmd.Env = append(cmd.Env, cfg.env...)

	if err := cmd.Start(); err != nil {
		console.Close()
		t.Fatalf("failed to start ash: %v", err)
	}

	s := &Session{
		Console: console,
		Home:    cfg.home,
		WorkDir: work,
		Timeout: cfg.timeout,
		cmd:     cmd,
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// HistoryFile returns the default history file for home.
func HistoryFile(home string) string {
	return filepath.Join(home, ".ash_history")
}

// Send sends text without a newline.
func (s *Session) Send(text string) error {
	_, err := s.Console.Send(text)
	return err
}

// SendLine sends text followed by Enter.
func (s *Session) SendLine(text string) error {
	_, err := s.Console.Send(text + KeyEnter)
	return err
}

// Expect waits for an exact string in the output.
func (s *Session) Expect(str string) (string, error) {
	return s.Console.ExpectString(str)
}

// ExpectTimeout waits for an exact string with a specific timeout.
func (s *Session) ExpectTimeout(str string, timeout time.Duration) (string, error) {
	return s.Console.Expect(expect.String(str), expect.WithTimeout(timeout))
}

// ExpectRegex waits for a regex match in the output.
func (s *Session) ExpectRegex(pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid regex: %w", err)
	}
	return s.Console.Expect(expect.Regexp(re))
}

// WaitForPrompt waits for the prompt of the directory named dir.
func (s *Session) WaitForPrompt(dir string) error {
	_, err := s.Expect(" " + dir + " ")
	return err
}

// Wait waits for the process to exit and returns its error.
func (s *Session) Wait(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		s.cmd = nil
		return err
	case <-time.After(timeout):
		return fmt.Errorf("ash did not exit within %s", timeout)
	}
}

// Close kills the process if it is still running and releases the pty.
func (s *Session) Close() error {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
		s.cmd = nil
	}
	return s.Console.Close()
}

// SkipIfShort skips the test in short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping interactive test in short mode")
	}
}
