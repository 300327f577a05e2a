package editor

import (
	"strings"
)

// State is the editing state of one line.
type State struct {
	buf    *Buffer
	cursor int // cluster index, 0..buf.Len()

	promptWidth int

	// histIdx counts steps back from the newest history entry to the one
	// shown, -1 while editing the live line.
	histIdx int
	saved   string

	suggestions []string
	sugIdx      int
}

func newState(promptWidth int) *State {
	return &State{
		buf:         NewBuffer(""),
		promptWidth: promptWidth,
		histIdx:     -1,
		sugIdx:      -1,
	}
}

// Line returns the buffer contents.
func (s *State) Line() string {
	return s.buf.String()
}

// Cursor returns the cursor position in grapheme clusters.
func (s *State) Cursor() int {
	return s.cursor
}

// cursorColumn returns the zero-based terminal column of the cursor.
func (s *State) cursorColumn() int {
	return s.promptWidth + s.buf.Width(s.cursor)
}

// Suggestion returns the active inline suggestion, or "".
func (s *State) Suggestion() string {
	if s.sugIdx < 0 || s.sugIdx >= len(s.suggestions) {
		return ""
	}
	return s.suggestions[s.sugIdx]
}

// suggestionTail is the part of the active suggestion not yet typed.
func (s *State) suggestionTail() string {
	if s.buf.Len() == 0 {
		return ""
	}
	line := s.Line()
	sug := s.Suggestion()
	if !strings.HasPrefix(sug, line) {
		return ""
	}
	return sug[len(line):]
}

func (s *State) hasSuggestions() bool {
	return len(s.suggestions) > 0
}

// set replaces the line and moves the cursor to its end.
func (s *State) set(line string) {
	s.buf.Set(line)
	s.cursor = s.buf.Len()
}

func (s *State) insert(text string) {
	s.cursor = s.buf.Insert(s.cursor, text)
}

func (s *State) backspace() bool {
	if s.cursor == 0 {
		return false
	}
	s.buf.Delete(s.cursor-1, s.cursor)
	s.cursor--
	return true
}

func (s *State) deleteAtCursor() bool {
	if s.cursor >= s.buf.Len() {
		return false
	}
	s.buf.Delete(s.cursor, s.cursor+1)
	return true
}

func (s *State) killToEnd() bool {
	if s.cursor >= s.buf.Len() {
		return false
	}
	s.buf.Delete(s.cursor, s.buf.Len())
	return true
}

func (s *State) killToStart() bool {
	if s.cursor == 0 {
		return false
	}
	s.buf.Delete(0, s.cursor)
	s.cursor = 0
	return true
}

func (s *State) deleteWord() bool {
	start := s.buf.WordStart(s.cursor)
	if start == s.cursor {
		return false
	}
	s.buf.Delete(start, s.cursor)
	s.cursor = start
	return true
}

func (s *State) left() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *State) right() {
	if s.cursor < s.buf.Len() {
		s.cursor++
	}
}

func (s *State) home() { s.cursor = 0 }

func (s *State) end() { s.cursor = s.buf.Len() }

func (s *State) atEnd() bool {
	return s.cursor == s.buf.Len()
}

// leaveHistory forgets history navigation after the line was edited.
func (s *State) leaveHistory() {
	s.histIdx = -1
	s.saved = ""
}

func (s *State) clearSuggestions() {
	s.suggestions = nil
	s.sugIdx = -1
}

// reset discards the line and all navigation state.
func (s *State) reset() {
	s.set("")
	s.leaveHistory()
	s.clearSuggestions()
}
