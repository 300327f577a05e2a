package executor

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Stdio is the standard streams handed to a built-in.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Builtin runs inside the shell process. It returns an exit status.
type Builtin func(ctx context.Context, args []string, stdio Stdio) (int, error)

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"cd":    builtinCd,
		"exit":  builtinExit,
		"exit;": builtinExit,
	}
}

// builtinCd changes the working directory, to "/" without an argument. On
// failure the directory is left unchanged.
func builtinCd(_ context.Context, args []string, _ Stdio) (int, error) {
	dir := "/"
	if len(args) > 0 && args[len(args)-1] != "" {
		dir = args[len(args)-1]
	}
	if err := os.Chdir(dir); err != nil {
		return 1, fmt.Errorf("cd: %w", err)
	}
	return 0, nil
}

func builtinExit(context.Context, []string, Stdio) (int, error) {
	return 0, ErrExit
}
