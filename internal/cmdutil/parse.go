package cmdutil

import (
	"strings"
)

// Pipeline operators.
const (
	Pipe = "|"
	And  = "&&"
)

// SplitUnquoted splits cmd on every occurrence of sep that is outside
// quotes. A quote closes only a region opened by the same character.
// Pieces are returned untrimmed; a cmd without sep yields one piece.
func SplitUnquoted(cmd, sep string) []string {
	if sep == "" {
		return []string{cmd}
	}

	var (
		parts []string
		start int
		quote byte
	)

	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(cmd[i:], sep):
			if sep == Pipe && strings.HasPrefix(cmd[i:], "||") {
				// "||" is not a pipe; keep both bytes in the stage.
				i++
				continue
			}
			parts = append(parts, cmd[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}

	return append(parts, cmd[start:])
}

// LastStage returns the text after the final unquoted pipe or "&&".
func LastStage(cmd string) string {
	groups := SplitUnquoted(cmd, Pipe)
	chain := SplitUnquoted(groups[len(groups)-1], And)
	return chain[len(chain)-1]
}

// CountPipes returns the number of unquoted pipe operators in a command.
func CountPipes(cmd string) int {
	return len(SplitUnquoted(cmd, Pipe)) - 1
}

// EndsInSpace reports whether cmd ends with a space or tab.
func EndsInSpace(cmd string) bool {
	return strings.HasSuffix(cmd, " ") || strings.HasSuffix(cmd, "\t")
}
