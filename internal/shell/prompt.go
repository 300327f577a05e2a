package shell

import (
	"os"
	"path/filepath"
)

// promptFor renders " <dir>  " for the working directory, with symbol
// placed before the trailing space when set.
func promptFor(cwd, symbol string) string {
	dir := filepath.Base(cwd)
	if cwd == "" {
		dir = "?"
	}
	return " " + dir + " " + symbol + " "
}

func (s *Shell) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	return promptFor(cwd, s.cfg.Shell.PromptSymbol)
}
