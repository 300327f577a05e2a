package term

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, input string) []Event {
	t.Helper()
	r := NewReader(bytes.NewBufferString(input))
	var events []Event
	for {
		ev, err := r.ReadEvent(time.Second)
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestReadEvent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Event
	}{
		{"ascii", "ls", []Event{{Key: KeyRune, Rune: 'l'}, {Key: KeyRune, Rune: 's'}}},
		{"utf8", "é界", []Event{{Key: KeyRune, Rune: 'é'}, {Key: KeyRune, Rune: '界'}}},
		{"enter cr", "\r", []Event{{Key: KeyEnter}}},
		{"enter lf", "\n", []Event{{Key: KeyEnter}}},
		{"tab", "\t", []Event{{Key: KeyTab}}},
		{"backspace del", "\x7f", []Event{{Key: KeyBackspace}}},
		{"backspace bs", "\x08", []Event{{Key: KeyBackspace}}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Event{{Key: KeyUp}, {Key: KeyDown}, {Key: KeyRight}, {Key: KeyLeft}}},
		{"ss3 arrows", "\x1bOA\x1bOH", []Event{{Key: KeyUp}, {Key: KeyHome}}},
		{"home end csi", "\x1b[H\x1b[F", []Event{{Key: KeyHome}, {Key: KeyEnd}}},
		{"home end tilde", "\x1b[1~\x1b[4~\x1b[7~\x1b[8~", []Event{{Key: KeyHome}, {Key: KeyEnd}, {Key: KeyHome}, {Key: KeyEnd}}},
		{"delete", "\x1b[3~", []Event{{Key: KeyDelete}}},
		{"modified arrow", "\x1b[1;5C", []Event{{Key: KeyRight}}},
		{"control keys", "\x01\x05\x03\x04\x0c\x12", []Event{{Key: KeyHome}, {Key: KeyEnd}, {Key: KeyCtrlC}, {Key: KeyCtrlD}, {Key: KeyCtrlL}, {Key: KeyCtrlR}}},
		{"emacs motion", "\x02\x06\x10\x0e", []Event{{Key: KeyLeft}, {Key: KeyRight}, {Key: KeyUp}, {Key: KeyDown}}},
		{"kill keys", "\x0b\x15\x17", []Event{{Key: KeyCtrlK}, {Key: KeyCtrlU}, {Key: KeyCtrlW}}},
		{"lone escape", "\x1b", []Event{{Key: KeyEscape}}},
		{"unknown control", "\x07", []Event{{Key: KeyUnknown}}},
		{"alt key", "\x1bx", []Event{{Key: KeyUnknown}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readAll(t, tt.input))
		})
	}
}

func TestReadEvent_Timeout(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	kr := NewReader(r)
	_, err = kr.ReadEvent(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	ev, err := kr.ReadEvent(time.Second)
	require.NoError(t, err)
	assert.Equal(t, Event{Key: KeyRune, Rune: 'x'}, ev)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "ctrl+r", KeyCtrlR.String())
	assert.Equal(t, "unknown", Key(999).String())
}

func TestSession_NotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notatty")
	require.NoError(t, err)
	defer f.Close()

	s := NewSession(f)
	assert.ErrorIs(t, s.EnableRaw(), ErrNotTerminal)
	assert.False(t, s.IsRaw())
	assert.NoError(t, s.Restore())

	resume := s.Suspend()
	assert.NoError(t, resume())
}
