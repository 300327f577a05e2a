package term

import (
	"bufio"
	"errors"
	"io"
	"time"
	"unicode/utf8"
)

// Key identifies a decoded key press.
type Key int

const (
	KeyUnknown Key = iota
	KeyRune
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyEscape
	KeyCtrlC
	KeyCtrlD
	KeyCtrlK
	KeyCtrlL
	KeyCtrlR
	KeyCtrlU
	KeyCtrlW
)

var keyNames = map[Key]string{
	KeyUnknown:   "unknown",
	KeyRune:      "rune",
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyBackspace: "backspace",
	KeyDelete:    "delete",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyEscape:    "escape",
	KeyCtrlC:     "ctrl+c",
	KeyCtrlD:     "ctrl+d",
	KeyCtrlK:     "ctrl+k",
	KeyCtrlL:     "ctrl+l",
	KeyCtrlR:     "ctrl+r",
	KeyCtrlU:     "ctrl+u",
	KeyCtrlW:     "ctrl+w",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one key press. Rune is set for KeyRune.
type Event struct {
	Key  Key
	Rune rune
}

// ErrTimeout is returned by ReadEvent when no key arrived in time.
var ErrTimeout = errors.New("key read timed out")

// escWait bounds how long a lone ESC waits for the rest of a sequence.
const escWait = 25 * time.Millisecond

// waitFunc blocks until input is readable or timeout elapses and reports
// whether input is ready.
type waitFunc func(timeout time.Duration) (bool, error)

// Reader decodes key presses from a terminal input stream.
type Reader struct {
	in   *bufio.Reader
	wait waitFunc
}

// NewReader decodes keys from r. When r is backed by a file descriptor,
// reads honour the timeout passed to ReadEvent; otherwise they block.
func NewReader(r io.Reader) *Reader {
	kr := &Reader{in: bufio.NewReader(r)}
	if f, ok := r.(fder); ok {
		kr.wait = fdWaiter(int(f.Fd()))
	} else {
		kr.wait = func(time.Duration) (bool, error) { return true, nil }
	}
	return kr
}

type fder interface {
	Fd() uintptr
}

// ReadEvent returns the next key press, or ErrTimeout if none arrives
// within timeout.
func (r *Reader) ReadEvent(timeout time.Duration) (Event, error) {
	if r.in.Buffered() == 0 {
		ready, err := r.wait(timeout)
		if err != nil {
			return Event{}, err
		}
		if !ready {
			return Event{}, ErrTimeout
		}
	}
	return r.decode()
}

func (r *Reader) decode() (Event, error) {
	b, err := r.in.ReadByte()
	if err != nil {
		return Event{}, err
	}

	switch b {
	case '\r', '\n':
		return Event{Key: KeyEnter}, nil
	case '\t':
		return Event{Key: KeyTab}, nil
	case 0x7f, 0x08:
		return Event{Key: KeyBackspace}, nil
	case 0x01:
		return Event{Key: KeyHome}, nil
	case 0x02:
		return Event{Key: KeyLeft}, nil
	case 0x03:
		return Event{Key: KeyCtrlC}, nil
	case 0x04:
		return Event{Key: KeyCtrlD}, nil
	case 0x05:
		return Event{Key: KeyEnd}, nil
	case 0x06:
		return Event{Key: KeyRight}, nil
	case 0x0b:
		return Event{Key: KeyCtrlK}, nil
	case 0x0c:
		return Event{Key: KeyCtrlL}, nil
	case 0x0e:
		return Event{Key: KeyDown}, nil
	case 0x10:
		return Event{Key: KeyUp}, nil
	case 0x12:
		return Event{Key: KeyCtrlR}, nil
	case 0x15:
		return Event{Key: KeyCtrlU}, nil
	case 0x17:
		return Event{Key: KeyCtrlW}, nil
	case 0x1b:
		return r.decodeEscape()
	}

	if b < 0x20 {
		return Event{Key: KeyUnknown}, nil
	}
	if b < utf8.RuneSelf {
		return Event{Key: KeyRune, Rune: rune(b)}, nil
	}

	if err := r.in.UnreadByte(); err != nil {
		return Event{}, err
	}
	ru, _, err := r.in.ReadRune()
	if err != nil {
		return Event{}, err
	}
	if ru == utf8.RuneError {
		return Event{Key: KeyUnknown}, nil
	}
	return Event{Key: KeyRune, Rune: ru}, nil
}

func (r *Reader) decodeEscape() (Event, error) {
	if r.in.Buffered() == 0 {
		ready, err := r.wait(escWait)
		if err != nil || !ready {
			return Event{Key: KeyEscape}, nil
		}
	}

	b, err := r.in.ReadByte()
	if err != nil {
		return Event{Key: KeyEscape}, nil
	}

	switch b {
	case '[':
		return r.decodeCSI()
	case 'O':
		final, err := r.in.ReadByte()
		if err != nil {
			return Event{Key: KeyEscape}, nil
		}
		return Event{Key: finalKey(final)}, nil
	default:
		// Alt+key; the shell has no bindings for it.
		return Event{Key: KeyUnknown}, nil
	}
}

// decodeCSI reads "ESC [ params final".
func (r *Reader) decodeCSI() (Event, error) {
	var params []byte
	for {
		b, err := r.in.ReadByte()
		if err != nil {
			return Event{Key: KeyUnknown}, nil
		}
		if b >= 0x40 && b <= 0x7e {
			if b == '~' {
				return Event{Key: tildeKey(string(params))}, nil
			}
			return Event{Key: finalKey(b)}, nil
		}
		params = append(params, b)
	}
}

func finalKey(b byte) Key {
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	case 'H':
		return KeyHome
	case 'F':
		return KeyEnd
	default:
		return KeyUnknown
	}
}

func tildeKey(params string) Key {
	switch params {
	case "1", "7":
		return KeyHome
	case "4", "8":
		return KeyEnd
	case "3":
		return KeyDelete
	default:
		return KeyUnknown
	}
}
