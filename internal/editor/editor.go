// Package editor implements the interactive line editor: a key-event state
// machine over a grapheme buffer with history navigation, inline history
// suggestions and tab completion.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/runger/ash/internal/logging"
	"github.com/runger/ash/internal/term"
)

// DefaultPollInterval bounds each wait for a key press.
const DefaultPollInterval = 500 * time.Millisecond

// KeySource yields key presses, returning term.ErrTimeout when none
// arrives within the timeout.
type KeySource interface {
	ReadEvent(timeout time.Duration) (term.Event, error)
}

// RawMode toggles terminal raw mode.
type RawMode interface {
	EnableRaw() error
	Restore() error
	Suspend() (resume func() error)
}

// History is the history store as seen by the editor. Indexes run oldest
// first; fetched batches are inserted at Loaded, ahead of the commands
// added since the store was opened.
type History interface {
	Get(index int) (string, bool)
	Count() int
	Loaded() int
	FetchMore()
	Add(cmd string)
	Suggestions(prefix string, limit int) []string
}

// Completer completes the trailing path of a line.
type Completer interface {
	Complete(line string) (string, error)
}

// SearchFunc runs an interactive history search seeded with query and
// returns the chosen command, or "" when cancelled.
type SearchFunc func(ctx context.Context, query string) (string, error)

// PromptFunc returns the prompt text to show before the buffer.
type PromptFunc func() string

// Option configures an Editor.
type Option func(*Editor)

// WithRawMode sets the raw mode controller.
func WithRawMode(raw RawMode) Option {
	return func(e *Editor) { e.raw = raw }
}

// WithHistory sets the history store.
func WithHistory(h History) Option {
	return func(e *Editor) { e.history = h }
}

// WithCompleter sets the tab completer.
func WithCompleter(c Completer) Option {
	return func(e *Editor) { e.completer = c }
}

// WithSearch sets the Ctrl-R history search.
func WithSearch(fn SearchFunc) Option {
	return func(e *Editor) { e.search = fn }
}

// WithPrompt sets the prompt source.
func WithPrompt(fn PromptFunc) Option {
	return func(e *Editor) { e.prompt = fn }
}

// WithProfile sets the color profile used for the prompt and suggestions.
func WithProfile(p termenv.Profile) Option {
	return func(e *Editor) { e.profile = p }
}

// WithPollInterval sets the bounded wait for each key press.
func WithPollInterval(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithMaxSuggestions caps the inline suggestion list.
func WithMaxSuggestions(n int) Option {
	return func(e *Editor) { e.maxSuggestions = n }
}

// WithErrorOutput sets where editor errors are reported.
func WithErrorOutput(w io.Writer) Option {
	return func(e *Editor) { e.errOut = w }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) { e.logger = logging.OrDiscard(logger) }
}

// Editor reads one command line at a time from a terminal.
type Editor struct {
	keys   KeySource
	out    io.Writer
	errOut io.Writer

	raw       RawMode
	history   History
	completer Completer
	search    SearchFunc
	prompt    PromptFunc

	profile        termenv.Profile
	poll           time.Duration
	maxSuggestions int
	logger         *slog.Logger

	state      *State
	promptText string
}

// New creates an Editor reading keys from keys and drawing to out.
func New(keys KeySource, out io.Writer, opts ...Option) *Editor {
	e := &Editor{
		keys:           keys,
		out:            out,
		errOut:         out,
		profile:        termenv.Ascii,
		poll:           DefaultPollInterval,
		maxSuggestions: 10,
		logger:         logging.Discard(),
		prompt:         func() string { return "" },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the state of the line being edited.
func (e *Editor) State() *State {
	return e.state
}

// ReadLine edits one line and returns it when Enter is pressed. It returns
// io.EOF when Ctrl-D is pressed on an empty line and ctx.Err() when ctx is
// done. Raw mode is held only while ReadLine runs.
func (e *Editor) ReadLine(ctx context.Context) (string, error) {
	if e.raw != nil {
		if err := e.raw.EnableRaw(); err != nil {
			return "", err
		}
		defer func() {
			if err := e.raw.Restore(); err != nil {
				e.logger.Warn("restore terminal failed", "error", err)
			}
		}()
	}

	e.promptText = e.prompt()
	e.state = newState(runewidth.StringWidth(e.promptText))
	e.render()

	for {
		select {
		case <-ctx.Done():
			e.write("\r\n")
			return "", ctx.Err()
		default:
		}

		ev, err := e.keys.ReadEvent(e.poll)
		if errors.Is(err, term.ErrTimeout) {
			continue
		}
		if err != nil {
			e.write("\r\n")
			return "", err
		}

		line, done, err := e.handle(ctx, ev)
		if done {
			return line, err
		}
	}
}

// handle applies one key press. done is true when ReadLine should return.
func (e *Editor) handle(ctx context.Context, ev term.Event) (line string, done bool, err error) {
	s := e.state

	switch ev.Key {
	case term.KeyRune:
		s.insert(string(ev.Rune))
		e.edited()

	case term.KeyBackspace:
		if s.backspace() {
			e.edited()
		}

	case term.KeyDelete:
		if s.deleteAtCursor() {
			e.edited()
		}

	case term.KeyCtrlK:
		if s.killToEnd() {
			e.edited()
		}

	case term.KeyCtrlU:
		if s.killToStart() {
			e.edited()
		}

	case term.KeyCtrlW:
		if s.deleteWord() {
			e.edited()
		}

	case term.KeyLeft:
		s.left()

	case term.KeyRight:
		if s.atEnd() && s.suggestionTail() != "" {
			s.set(s.Suggestion())
			e.edited()
		} else {
			s.right()
		}

	case term.KeyHome:
		s.home()

	case term.KeyEnd:
		s.end()

	case term.KeyUp:
		e.up()

	case term.KeyDown:
		e.down()

	case term.KeyEscape:
		s.clearSuggestions()

	case term.KeyTab:
		e.complete()

	case term.KeyCtrlC:
		e.write("^C\r\n")
		s.reset()

	case term.KeyCtrlD:
		if s.buf.Len() == 0 {
			e.write("\r\n")
			return "", true, io.EOF
		}
		if s.deleteAtCursor() {
			e.edited()
		}

	case term.KeyCtrlL:
		e.write("\x1b[H\x1b[2J")

	case term.KeyCtrlR:
		e.searchHistory(ctx)

	case term.KeyEnter:
		line := s.Line()
		s.clearSuggestions()
		e.render()
		e.write("\r\n")
		if e.history != nil && strings.TrimSpace(line) != "" {
			e.history.Add(line)
		}
		return line, true, nil

	default:
		return "", false, nil
	}

	e.render()
	return "", false, nil
}

// edited leaves history navigation and refreshes suggestions for the new
// line contents.
func (e *Editor) edited() {
	e.state.leaveHistory()
	e.refreshSuggestions()
}

func (e *Editor) refreshSuggestions() {
	s := e.state
	s.clearSuggestions()
	if e.history == nil || s.buf.Len() == 0 || e.maxSuggestions <= 0 {
		return
	}
	s.suggestions = e.history.Suggestions(s.Line(), e.maxSuggestions)
	if len(s.suggestions) > 0 {
		s.sugIdx = 0
	}
}

// up steps to an older suggestion when a suggestion list is active,
// otherwise to an older history entry.
func (e *Editor) up() {
	s := e.state
	if s.hasSuggestions() {
		if s.sugIdx < len(s.suggestions)-1 {
			s.sugIdx++
		}
		return
	}
	if e.history == nil {
		return
	}

	if s.histIdx+1 >= e.history.Count()-2 {
		e.fetchMore()
	}
	next := s.histIdx + 1
	entry, ok := e.entry(next)
	if !ok {
		return
	}
	if s.histIdx == -1 {
		s.saved = s.Line()
	}
	s.histIdx = next
	s.set(entry)
}

// down steps to a newer suggestion or history entry. Leaving the newest
// history entry restores the line that was being edited.
func (e *Editor) down() {
	s := e.state
	if s.hasSuggestions() {
		if s.sugIdx > 0 {
			s.sugIdx--
		}
		return
	}
	if s.histIdx < 0 || e.history == nil {
		return
	}
	if s.histIdx == 0 {
		saved := s.saved
		s.leaveHistory()
		s.set(saved)
		return
	}
	s.histIdx--
	if entry, ok := e.entry(s.histIdx); ok {
		s.set(entry)
	}
}

// entry returns the history entry steps back from the newest one.
func (e *Editor) entry(steps int) (string, bool) {
	return e.history.Get(e.history.Count() - 1 - steps)
}

// fetchMore loads another batch and keeps the shown entry in place. The
// batch lands ahead of this session's commands, so a shown file entry moves
// further from the newest one.
func (e *Editor) fetchMore() {
	s := e.state
	before, loaded := e.history.Count(), e.history.Loaded()
	e.history.FetchMore()

	grown := e.history.Count() - before
	if grown > 0 && s.histIdx >= 0 && before-1-s.histIdx < loaded {
		s.histIdx += grown
	}
}

// complete runs tab completion outside raw mode so listings print with
// normal line handling.
func (e *Editor) complete() {
	s := e.state
	if e.completer == nil || strings.TrimSpace(s.Line()) == "" {
		return
	}

	resume := e.suspend()
	line, err := e.completer.Complete(s.Line())
	e.resume(resume)

	if err != nil {
		fmt.Fprintf(e.errOut, "\r\nash: completion: %v\r\n", err)
		return
	}
	if line != s.Line() {
		s.set(line)
		e.edited()
	}
}

func (e *Editor) searchHistory(ctx context.Context) {
	if e.search == nil {
		return
	}
	s := e.state

	e.write("\r\n")
	resume := e.suspend()
	picked, err := e.search(ctx, s.Line())
	e.resume(resume)

	if err != nil {
		e.logger.Warn("history search failed", "error", err)
		return
	}
	if picked != "" {
		s.set(picked)
		e.edited()
	}
}

func (e *Editor) suspend() func() error {
	if e.raw == nil {
		return nil
	}
	return e.raw.Suspend()
}

func (e *Editor) resume(resume func() error) {
	if resume == nil {
		return
	}
	if err := resume(); err != nil {
		e.logger.Warn("re-enable raw mode failed", "error", err)
	}
}

func (e *Editor) write(s string) {
	if _, err := io.WriteString(e.out, s); err != nil {
		e.logger.Debug("terminal write failed", "error", err)
	}
}
