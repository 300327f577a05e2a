package picker

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Options configures a picker run.
type Options struct {
	Tabs   []Tab
	Height int
	Input  io.Reader
	Output io.Writer
}

// Run shows the picker seeded with query and blocks until the user picks
// a command or cancels. It returns "" on cancel.
func Run(ctx context.Context, provider Provider, query string, opts Options) (string, error) {
	m := NewModel(opts.Tabs, provider, query, opts.Height)

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		return "", fmt.Errorf("history picker: %w", err)
	}

	fm, ok := final.(Model)
	if !ok {
		return "", nil
	}
	return fm.Result(), nil
}

// SearchFunc returns a function that runs the picker over provider, for
// use as the editor's history search.
func SearchFunc(provider Provider, opts Options) func(ctx context.Context, query string) (string, error) {
	return func(ctx context.Context, query string) (string, error) {
		return Run(ctx, provider, query, opts)
	}
}
