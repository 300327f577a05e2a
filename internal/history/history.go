// Package history provides the persistent command history of the shell.
//
// The backing file holds one command per line. Only a window of it is kept
// in memory: it is loaded from the start of the file forwards in fixed-size
// batches as navigation asks for more. Index 0 is the oldest loaded entry;
// commands entered during the session follow the loaded ones and are
// appended to the file when the store is closed.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/runger/ash/internal/logging"
)

// DefaultBatchSize is the number of lines loaded per fetch.
const DefaultBatchSize = 10

// readChunk is the size of each backwards read of the file tail.
const readChunk = 4096

// Dedup controls which repeated commands Add records.
type Dedup string

const (
	// DedupConsecutive drops a command equal to the most recent entry.
	DedupConsecutive Dedup = "consecutive"
	// DedupNone records every non-blank command.
	DedupNone Dedup = "none"
	// DedupAll drops a command already present in the loaded window.
	DedupAll Dedup = "all"
)

// Option configures a Store.
type Option func(*Store)

// WithBatchSize sets the number of lines loaded per fetch.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDedup sets the dedup policy.
func WithDedup(d Dedup) Option {
	return func(s *Store) {
		switch d {
		case DedupConsecutive, DedupNone, DedupAll:
			s.dedup = d
		}
	}
}

// WithLogger sets the logger used for swallowed I/O errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrDiscard(logger)
	}
}

// Store is a lazily loaded view of a history file. It is safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	path   string
	file   *os.File
	reader *bufio.Reader

	// unread is the number of bytes of the file not yet loaded.
	unread int64
	// last is the final non-blank line of the file, loaded or not.
	last   string
	loaded []string // file order, oldest first
	added  []string // this session, oldest first

	batchSize int
	dedup     Dedup
	logger    *slog.Logger
	closed    bool
}

// Open opens the history file at path, creating it and its parent
// directories if needed, and loads the first batch.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		batchSize: DefaultBatchSize,
		dedup:     DedupConsecutive,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat history file: %w", err)
	}

	s.file = f
	s.unread = info.Size()
	s.reader = bufio.NewReader(io.NewSectionReader(f, 0, info.Size()))

	if tail, _, err := readTail(f, info.Size(), 1); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	} else if len(tail) > 0 {
		s.last = tail[0]
	}

	if err := s.fetch(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Add records cmd for this session. Blank commands are ignored, repeats are
// filtered by the dedup policy.
func (s *Store) Add(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(cmd)
}

func (s *Store) add(cmd string) bool {
	if strings.TrimSpace(cmd) == "" {
		return false
	}
	// The file is newline delimited.
	if strings.ContainsAny(cmd, "\r\n") {
		return false
	}

	switch s.dedup {
	case DedupConsecutive:
		if s.latest() == cmd {
			return false
		}
	case DedupAll:
		if s.contains(cmd) {
			return false
		}
	}

	s.added = append(s.added, cmd)
	return true
}

// latest returns the most recent command, loaded or not.
func (s *Store) latest() string {
	if n := len(s.added); n > 0 {
		return s.added[n-1]
	}
	return s.last
}

func (s *Store) contains(cmd string) bool {
	for _, c := range s.added {
		if c == cmd {
			return true
		}
	}
	for _, c := range s.loaded {
		if c == cmd {
			return true
		}
	}
	return false
}

// Get returns the entry at index in the in-memory window, oldest first.
func (s *Store) Get(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(index)
}

func (s *Store) get(index int) (string, bool) {
	if index < 0 {
		return "", false
	}
	if index < len(s.loaded) {
		return s.loaded[index], true
	}
	index -= len(s.loaded)
	if index < len(s.added) {
		return s.added[index], true
	}
	return "", false
}

// Count returns the number of entries in memory.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaded) + len(s.added)
}

// Loaded returns the number of entries read from the file. Fetched batches
// are inserted at this index, ahead of the session's commands.
func (s *Store) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaded)
}

// Exhausted reports whether the whole file has been loaded.
func (s *Store) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread == 0
}

// Entries returns the in-memory entries, oldest first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.loaded)+len(s.added))
	out = append(out, s.loaded...)
	return append(out, s.added...)
}

// Session returns the entries added since Open, oldest first.
func (s *Store) Session() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.added...)
}

// FetchMore loads the next batch of the file. It is a no-op once the file is
// fully loaded. Read errors are logged, not returned.
func (s *Store) FetchMore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fetch(); err != nil {
		s.logger.Warn("history fetch failed", "path", s.path, "error", err)
	}
}

// LoadAll loads the rest of the file.
func (s *Store) LoadAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.unread > 0 {
		if err := s.fetch(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) fetch() error {
	if s.closed || s.file == nil || s.unread == 0 {
		return nil
	}

	for n := 0; n < s.batchSize && s.unread > 0; {
		line, err := s.reader.ReadString('\n')
		s.unread -= int64(len(line))
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if errors.Is(err, io.EOF) {
			// The file may have been truncated under us.
			s.unread = 0
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.loaded = append(s.loaded, line)
		n++
	}
	return nil
}

// readTail reads up to n non-blank lines ending at offset end, walking
// backwards. It returns them in file order along with the offset where they
// start.
func readTail(r io.ReaderAt, end int64, n int) ([]string, int64, error) {
	var (
		lines []string // newest first
		data  []byte   // covers [pos, pos+len(data))
		pos   = end
	)

	for len(lines) < n {
		if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
			lines = appendLine(lines, data[i+1:])
			data = data[:i]
			continue
		}
		if pos == 0 {
			// data is the first line of the file.
			lines = appendLine(lines, data)
			data = nil
			break
		}

		size := int64(readChunk)
		if size > pos {
			size = pos
		}
		buf := make([]byte, size, int(size)+len(data))
		if _, err := r.ReadAt(buf, pos-size); err != nil && !errors.Is(err, io.EOF) {
			return nil, end, err
		}
		pos -= size
		data = append(buf, data...)
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, pos + int64(len(data)), nil
}

func appendLine(lines []string, line []byte) []string {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(bytes.TrimSpace(line)) == 0 {
		return lines
	}
	return append(lines, string(line))
}

// Suggestions returns up to limit unique in-memory entries starting with
// prefix, most recent first. The prefix itself is never suggested.
func (s *Store) Suggestions(prefix string, limit int) []string {
	if prefix == "" || limit <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var results []string

	for i := len(s.loaded) + len(s.added) - 1; len(results) < limit; i-- {
		entry, ok := s.get(i)
		if !ok {
			break
		}
		if strings.HasPrefix(entry, prefix) && entry != prefix && !seen[entry] {
			seen[entry] = true
			results = append(results, entry)
		}
	}

	return results
}

// Close appends the session's commands to the file and releases it. It is
// idempotent. Write failures are logged and swallowed so shutdown always
// completes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file != nil {
		s.file.Close()
	}

	if err := s.flush(); err != nil {
		s.logger.Error("history write failed", "path", s.path, "error", err)
	}
	return nil
}

func (s *Store) flush() error {
	if len(s.added) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if needsSeparator(f) {
		buf.WriteByte('\n')
	}
	for _, cmd := range s.added {
		buf.WriteString(cmd)
		buf.WriteByte('\n')
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	s.added = nil
	return nil
}

// needsSeparator reports whether a non-empty file lacks a trailing newline.
func needsSeparator(f *os.File) bool {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}
