// Package complete implements tab completion of path arguments.
package complete

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/runger/ash/internal/cmdutil"
	"github.com/runger/ash/internal/parser"
)

// DefaultWidth is used when the terminal width cannot be determined.
const DefaultWidth = 80

// Suggestion is a directory entry matching the fragment being completed.
type Suggestion struct {
	Name  string
	IsDir bool
}

// WidthFunc reports the terminal width in columns.
type WidthFunc func() (int, error)

// Option configures an Engine.
type Option func(*Engine)

// WithWidth sets the terminal width source used for listings.
func WithWidth(fn WidthFunc) Option {
	return func(e *Engine) { e.width = fn }
}

// WithOutput sets where candidate listings are printed.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithPadding sets the spaces between listing columns.
func WithPadding(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.padding = n
		}
	}
}

// WithShowHidden controls whether dot files match an empty fragment.
func WithShowHidden(show bool) Option {
	return func(e *Engine) { e.showHidden = show }
}

// Engine completes the trailing path argument of a command line.
type Engine struct {
	parser     *parser.Parser
	width      WidthFunc
	out        io.Writer
	padding    int
	showHidden bool
}

// New creates an Engine that parses lines with p.
func New(p *parser.Parser, opts ...Option) *Engine {
	e := &Engine{
		parser:     p,
		out:        os.Stdout,
		padding:    2,
		showHidden: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// request is the fragment to complete and where to look for it.
type request struct {
	dir      string
	fragment string
	dirsOnly bool
	// sep is inserted before the completion when the line has no argument
	// to extend yet.
	sep string
}

func (e *Engine) request(line string) request {
	stage := cmdutil.LastStage(line)
	parsed := e.parser.Parse(stage)
	caps := e.parser.Capabilities().Lookup(parsed.Command, parsed.Args)

	req := request{dirsOnly: caps.DirectoriesOnly}

	if cmdutil.EndsInSpace(line) {
		req.dir = "."
		return req
	}

	paths := parsed.Paths
	req.fragment = paths[len(paths)-1]
	req.dir = strings.Join(paths[:len(paths)-1], "/")
	if req.dir == "" {
		req.dir = "/"
	}
	switch tokens := parser.Tokenize(stage); {
	case len(parsed.Args) == 0 && parsed.Command != "":
		req.sep = " "
	case len(tokens) > 0 && tokens[len(tokens)-1] == "~":
		req.sep = "/"
	}
	return req
}

// matches returns the sorted entries of the request's directory that start
// with the fragment being completed.
func (e *Engine) matches(req request) ([]Suggestion, error) {
	entries, err := os.ReadDir(req.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", req.dir, err)
	}

	var out []Suggestion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, req.fragment) {
			continue
		}
		if req.fragment == "" && !e.showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		isDir := isDirectory(req.dir, entry)
		if req.dirsOnly && !isDir {
			continue
		}
		out = append(out, Suggestion{Name: name, IsDir: isDir})
	}
	return out, nil
}

// isDirectory reports whether entry is a directory, following symlinks.
func isDirectory(dir string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}

// Complete returns line with its trailing path fragment completed.
//
// A single match replaces the fragment with the full name, plus "/" for a
// directory. Several matches extend the line to their longest common
// prefix, or print them in columns when there is nothing to extend. No
// match leaves the line unchanged.
func (e *Engine) Complete(line string) (string, error) {
	req := e.request(line)
	matches, err := e.matches(req)
	if err != nil {
		return line, err
	}

	switch len(matches) {
	case 0:
		return line, nil
	case 1:
		name := matches[0].Name
		if matches[0].IsDir {
			name += "/"
		}
		return extend(line, req, name), nil
	}

	if prefix := LongestCommonPrefix(matches, req.fragment); len(prefix) > len(req.fragment) {
		return extend(line, req, prefix), nil
	}

	e.list(matches)
	return line, nil
}

func extend(line string, req request, replacement string) string {
	return line + req.sep + strings.TrimPrefix(replacement, req.fragment)
}

// LongestCommonPrefix grows the fragment one rune at a time along the first
// match and stops at the first length not shared by every match.
func LongestCommonPrefix(matches []Suggestion, fragment string) string {
	if len(matches) == 0 {
		return fragment
	}

	first := matches[0].Name
	longest := fragment
	for n := len(fragment); n < len(first); {
		_, size := utf8.DecodeRuneInString(first[n:])
		n += size
		candidate := first[:n]
		for _, m := range matches[1:] {
			if !strings.HasPrefix(m.Name, candidate) {
				return longest
			}
		}
		longest = candidate
	}
	return longest
}

// list prints matches in columns sized to the widest name.
func (e *Engine) list(matches []Suggestion) {
	maxWidth := 0
	for _, m := range matches {
		if w := runewidth.StringWidth(m.Name); w > maxWidth {
			maxWidth = w
		}
	}

	width := DefaultWidth
	if e.width != nil {
		if w, err := e.width(); err == nil && w > 0 {
			width = w
		}
	}

	cellWidth := maxWidth + e.padding
	cols := width / cellWidth
	if cols < 1 {
		cols = 1
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, m := range matches {
		if (i+1)%cols == 0 || i == len(matches)-1 {
			b.WriteString(m.Name)
			b.WriteString("\n")
			continue
		}
		b.WriteString(runewidth.FillRight(m.Name, cellWidth))
	}
	fmt.Fprint(e.out, b.String())
}
