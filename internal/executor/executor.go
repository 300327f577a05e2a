// Package executor runs command lines: pipe groups connected by OS pipes,
// each group a chain of stages joined by "&&".
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/execabs"

	"github.com/runger/ash/internal/logging"
	"github.com/runger/ash/internal/parser"
)

var (
	// ErrExit is returned when the exit built-in runs.
	ErrExit = errors.New("exit")
	// ErrNotFound is returned when no program matches a command name.
	ErrNotFound = errors.New("command not found")
	// ErrSyntax is returned for malformed command lines.
	ErrSyntax = errors.New("syntax error")
)

// StatusNotFound is the exit status reported for unresolvable commands.
const StatusNotFound = 127

// Option configures an Executor.
type Option func(*Executor)

// WithStdio sets the streams used by the first and last pipe groups.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(e *Executor) {
		e.stdin = in
		e.stdout = out
		e.stderr = errOut
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logging.OrDiscard(logger)
	}
}

// WithPathEnv overrides the PATH used for resolution.
func WithPathEnv(path string) Option {
	return func(e *Executor) {
		e.pathEnv = &path
	}
}

// Executor runs parsed command lines.
type Executor struct {
	parser   *parser.Parser
	builtins map[string]Builtin
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	pathEnv  *string
	logger   *slog.Logger
}

// New creates an Executor using p to parse stages.
func New(p *parser.Parser, opts ...Option) *Executor {
	if p == nil {
		p = parser.New(nil)
	}
	e := &Executor{
		parser:   p,
		builtins: defaultBuiltins(),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds or replaces a built-in.
func (e *Executor) Register(name string, b Builtin) {
	e.builtins[name] = b
}

// Run executes line and returns the exit status of the final pipe group.
// The returned error is the first spawn, wait or resolution failure, or
// ErrExit.
func (e *Executor) Run(ctx context.Context, line string) (int, error) {
	if strings.TrimSpace(line) == "" {
		return 0, nil
	}

	groups, err := Plan(e.parser, line)
	if err != nil {
		return 2, err
	}

	if len(groups) == 1 {
		return e.runChain(ctx, groups[0].Chain, e.stdin, e.stdout)
	}

	return e.runPipeline(ctx, groups)
}

type pipe struct {
	r *os.File
	w *os.File
}

func (e *Executor) runPipeline(ctx context.Context, groups []Group) (int, error) {
	pipes := make([]pipe, len(groups)-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			for _, p := range pipes[:i] {
				_ = p.r.Close()
				_ = p.w.Close()
			}
			return 1, fmt.Errorf("failed to create pipe: %w", err)
		}
		pipes[i] = pipe{r: r, w: w}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		statuses = make([]int, len(groups))
	)

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i, g := range groups {
		var in io.Reader = e.stdin
		var out io.Writer = e.stdout
		if i > 0 {
			in = pipes[i-1].r
		}
		if i < len(pipes) {
			out = pipes[i].w
		}

		wg.Add(1)
		go func(i int, g Group, in io.Reader, out io.Writer) {
			defer wg.Done()

			status, err := e.runChain(ctx, g.Chain, in, out)
			statuses[i] = status
			if err != nil {
				setErr(err)
			}

			// The group owns its pipe ends; releasing them lets neighbours
			// see EOF or EPIPE.
			if i < len(pipes) {
				_ = pipes[i].w.Close()
			}
			if i > 0 {
				_ = pipes[i-1].r.Close()
			}
		}(i, g, in, out)
	}

	wg.Wait()
	return statuses[len(statuses)-1], firstErr
}

// runChain runs stages in order. A non-zero status or an error skips the
// rest of the chain.
func (e *Executor) runChain(ctx context.Context, chain []Stage, in io.Reader, out io.Writer) (int, error) {
	status := 0
	for _, st := range chain {
		var err error
		status, err = e.runStage(ctx, st, in, out)
		if err != nil {
			return status, err
		}
		if status != 0 {
			e.logger.Debug("chain stopped", "stage", st.Text, "status", status)
			return status, nil
		}
	}
	return status, nil
}

func (e *Executor) runStage(ctx context.Context, st Stage, in io.Reader, out io.Writer) (int, error) {
	name := st.Command.Command
	args := st.Command.Args

	if b, ok := e.builtins[name]; ok {
		return b(ctx, args, Stdio{In: in, Out: out, Err: e.stderr})
	}

	var (
		path string
		err  error
	)
	if e.pathEnv != nil {
		path, err = resolveIn(name, *e.pathEnv)
	} else {
		path, err = Resolve(name)
	}
	if err != nil {
		return StatusNotFound, err
	}

	cmd := execabs.CommandContext(ctx, path, args...)
	cmd.Args[0] = name
	cmd.Stdin = in
	cmd.Stdout = out
	cmd.Stderr = e.stderr

	e.logger.Debug("spawning", "command", name, "path", path, "args", len(args))

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("failed to start %s: %w", name, err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *execabs.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				code = 1
			}
			return code, nil
		}
		return 1, fmt.Errorf("failed to wait for %s: %w", name, err)
	}

	return 0, nil
}
