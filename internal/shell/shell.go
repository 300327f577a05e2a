// Package shell wires the line editor, executor, history and command log
// into the interactive read-eval-print loop.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/runger/ash/internal/about"
	"github.com/runger/ash/internal/complete"
	"github.com/runger/ash/internal/config"
	"github.com/runger/ash/internal/editor"
	"github.com/runger/ash/internal/executor"
	"github.com/runger/ash/internal/history"
	"github.com/runger/ash/internal/logging"
	"github.com/runger/ash/internal/parser"
	"github.com/runger/ash/internal/picker"
	"github.com/runger/ash/internal/redact"
	"github.com/runger/ash/internal/storage"
	"github.com/runger/ash/internal/term"
)

// Options configures a Shell.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Version    string
	Logger     *slog.Logger

	In  *os.File
	Out *os.File
	Err io.Writer

	// Store is the command log. Nil disables recording.
	Store storage.Store
}

type lineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// Shell is one interactive session.
type Shell struct {
	cfg       *config.Config
	opts      Options
	logger    *slog.Logger
	sessionID string

	in      *os.File
	out     io.Writer
	errOut  io.Writer
	session *term.Session

	hist     *history.Store
	reader   lineReader
	executor *executor.Executor
	recorder *recorder

	closeOnce sync.Once
}

// New builds a shell from opts. It fails only when the history file cannot
// be opened.
func New(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	logger := logging.OrDiscard(opts.Logger)

	hist, err := history.Open(cfg.HistoryPath(),
		history.WithBatchSize(cfg.History.BatchSize),
		history.WithDedup(history.Dedup(cfg.History.Dedup)),
		history.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	s := &Shell{
		cfg:       cfg,
		opts:      opts,
		logger:    logger,
		sessionID: uuid.NewString(),
		in:        opts.In,
		out:       opts.Out,
		errOut:    opts.Err,
		session:   term.NewSession(opts.In),
		hist:      hist,
	}
	var redactLine func(string) string
	if cfg.CommandLog.Redact {
		redactLine = redact.Line
	}
	s.recorder = newRecorder(opts.Store, s.sessionID, logger, redactLine)

	p := parser.New(parser.CapabilitiesFromConfig(cfg.Commands))

	s.executor = executor.New(p,
		executor.WithStdio(opts.In, opts.Out, opts.Err),
		executor.WithLogger(logger),
	)
	s.executor.Register("about", s.builtinAbout)
	s.executor.Register("history", s.builtinHistory)

	completer := complete.New(p,
		complete.WithWidth(term.Width(opts.Out)),
		complete.WithOutput(opts.Out),
		complete.WithPadding(cfg.Completion.Padding),
		complete.WithShowHidden(cfg.Completion.ShowHidden),
	)

	search := picker.SearchFunc(picker.NewHistoryProvider(hist), picker.Options{
		Height: cfg.History.PickerHeight,
		Input:  opts.In,
		Output: opts.Out,
	})

	s.reader = editor.New(term.NewReader(opts.In), opts.Out,
		editor.WithRawMode(s.session),
		editor.WithHistory(hist),
		editor.WithCompleter(completer),
		editor.WithSearch(search),
		editor.WithPrompt(s.prompt),
		editor.WithProfile(colorProfile(cfg, opts.Out)),
		editor.WithPollInterval(time.Duration(cfg.Shell.PollIntervalMs)*time.Millisecond),
		editor.WithMaxSuggestions(cfg.History.MaxSuggestions),
		editor.WithErrorOutput(opts.Err),
		editor.WithLogger(logger),
	)

	return s, nil
}

func colorProfile(cfg *config.Config, out *os.File) termenv.Profile {
	if !cfg.Shell.Color {
		return termenv.Ascii
	}
	return termenv.NewOutput(out).EnvColorProfile()
}

// SessionID identifies this shell run in the command log.
func (s *Shell) SessionID() string {
	return s.sessionID
}

// Run executes the read-eval-print loop until exit, end of input, or a
// SIGTERM/SIGHUP. The terminal is restored and history persisted on every
// return path.
func (s *Shell) Run(ctx context.Context) error {
	defer s.Close()

	fd := s.in.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return fmt.Errorf("stdin: %w", term.ErrNotTerminal)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	// Children share the foreground process group; keep their Ctrl-C from
	// killing the shell.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer func() {
		signal.Stop(interrupts)
		close(interrupts)
	}()
	go func() {
		for range interrupts {
		}
	}()

	s.recorder.start(ctx)
	logging.LogStartup(s.logger, logging.StartupInfo{
		Version:     s.opts.Version,
		SessionID:   s.sessionID,
		ConfigPath:  s.opts.ConfigPath,
		HistoryPath: s.hist.Path(),
		PID:         os.Getpid(),
	})

	reason, err := s.loop(ctx)
	logging.LogShutdown(s.logger, reason)
	return err
}

// loop reads and runs lines. It returns why it stopped and any fatal error.
func (s *Shell) loop(ctx context.Context) (string, error) {
	for {
		line, err := s.reader.ReadLine(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return "eof", nil
		case ctx.Err() != nil:
			return "signal", nil
		case err != nil:
			return "error", fmt.Errorf("read line: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if exit := s.execute(ctx, line); exit {
			return "exit", nil
		}
		if ctx.Err() != nil {
			return "signal", nil
		}
	}
}

// execute runs one line, reporting errors on stderr. It returns true when
// the line asked the shell to exit.
func (s *Shell) execute(ctx context.Context, line string) bool {
	done := s.recorder.begin(ctx, line)
	status, err := s.executor.Run(ctx, line)
	done(status)

	switch {
	case errors.Is(err, executor.ErrExit):
		return true
	case err != nil:
		fmt.Fprintf(s.errOut, "ash: %v\n", err)
		s.logger.Debug("command failed", "status", status, "error", err)
	}
	return false
}

// Close restores the terminal, appends this session's history and closes
// the command log session. It is safe to call more than once.
func (s *Shell) Close() error {
	s.closeOnce.Do(func() {
		if err := s.session.Restore(); err != nil {
			s.logger.Warn("restore terminal failed", "error", err)
		}
		_ = s.hist.Close()
		s.recorder.end()
	})
	return nil
}

func (s *Shell) builtinAbout(_ context.Context, _ []string, stdio executor.Stdio) (int, error) {
	if err := about.Print(stdio.Out); err != nil {
		return 1, fmt.Errorf("about: %w", err)
	}
	return 0, nil
}

// builtinHistory prints the loaded history window, oldest first, numbered
// from 1. With an argument only entries starting with it are shown.
func (s *Shell) builtinHistory(_ context.Context, args []string, stdio executor.Stdio) (int, error) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	if err := writeHistory(stdio.Out, s.hist.Entries(), prefix); err != nil {
		return 1, fmt.Errorf("history: %w", err)
	}
	return 0, nil
}

func writeHistory(w io.Writer, entries []string, prefix string) error {
	for i, cmd := range entries {
		if prefix != "" && !strings.HasPrefix(cmd, prefix) {
			continue
		}
		if _, err := fmt.Fprintf(w, "%5d  %s\n", i+1, cmd); err != nil {
			return err
		}
	}
	return nil
}
