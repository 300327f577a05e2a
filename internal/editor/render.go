package editor

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

const clearLine = "\r\x1b[2K"

// render redraws the prompt line and places the cursor.
func (e *Editor) render() {
	e.write(e.frame())
}

// frame builds the escape sequence that redraws the line: prompt, buffer,
// dimmed suggestion remainder, then a move back to the cursor.
func (e *Editor) frame() string {
	s := e.state

	var b strings.Builder
	b.WriteString(clearLine)
	b.WriteString(e.profile.String(e.promptText).Bold().String())
	b.WriteString(s.Line())

	tail := s.suggestionTail()
	if tail != "" {
		b.WriteString(e.profile.String(tail).Faint().String())
	}

	back := s.promptWidth + s.buf.TotalWidth() + runewidth.StringWidth(tail) - s.cursorColumn()
	if back > 0 {
		fmt.Fprintf(&b, "\x1b[%dD", back)
	}
	return b.String()
}
