// Package term owns the terminal: raw mode, window size and key decoding.
package term

import (
	"errors"
	"fmt"
	"os"
	"sync"

	xterm "golang.org/x/term"
)

// ErrNotTerminal is returned when raw mode is requested on a non-terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Session toggles raw mode on one terminal. Raw mode is process-wide state;
// Restore is safe to call from any goroutine and any number of times.
type Session struct {
	mu    sync.Mutex
	fd    int
	saved *xterm.State
}

// NewSession returns a session for the terminal behind f.
func NewSession(f *os.File) *Session {
	return &Session{fd: int(f.Fd())}
}

// EnableRaw puts the terminal into raw mode. It is a no-op when raw mode is
// already on.
func (s *Session) EnableRaw() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved != nil {
		return nil
	}
	if !xterm.IsTerminal(s.fd) {
		return ErrNotTerminal
	}

	state, err := xterm.MakeRaw(s.fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	s.saved = state
	return nil
}

// Restore returns the terminal to the mode it had before EnableRaw.
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saved == nil {
		return nil
	}
	state := s.saved
	s.saved = nil
	if err := xterm.Restore(s.fd, state); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}

// IsRaw reports whether raw mode is on.
func (s *Session) IsRaw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved != nil
}

// Suspend leaves raw mode and returns a function that re-enters it if it
// was on.
func (s *Session) Suspend() (resume func() error) {
	if !s.IsRaw() {
		return func() error { return nil }
	}
	if err := s.Restore(); err != nil {
		return func() error { return err }
	}
	return s.EnableRaw
}

// Size returns the width and height of the terminal behind f.
func Size(f *os.File) (width, height int, err error) {
	return xterm.GetSize(int(f.Fd()))
}

// Width returns the terminal width of f, for use as a completion width
// source.
func Width(f *os.File) func() (int, error) {
	return func() (int, error) {
		w, _, err := Size(f)
		return w, err
	}
}
