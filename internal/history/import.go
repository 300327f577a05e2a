package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxImportEntries caps how many of the most recent foreign entries are
// imported.
const MaxImportEntries = 25000

// Foreign shells whose history files can be imported.
const (
	ShellBash = "bash"
	ShellZsh  = "zsh"
	ShellFish = "fish"
)

// Import appends cmds to the session as if they had been typed, applying
// the dedup policy. It returns the number of commands recorded. They are
// written to the file on Close.
func (s *Store) Import(cmds []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, cmd := range cmds {
		if s.add(cmd) {
			n++
		}
	}
	return n
}

// ReadForeign reads the history of another shell. An empty path selects the
// shell's default history file; a missing file yields no entries. Entries
// spanning several lines are dropped because the history file is line based.
func ReadForeign(shell, path string) ([]string, error) {
	if shell == "" || shell == "auto" {
		shell = DetectShell()
	}

	var parse func(*bufio.Scanner) []string
	switch shell {
	case ShellBash:
		parse = parseBash
	case ShellZsh:
		parse = parseZsh
	case ShellFish:
		parse = parseFish
	default:
		return nil, fmt.Errorf("unsupported shell: %q", shell)
	}

	if path == "" {
		path = foreignHistoryPath(shell)
	}
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	cmds := parse(scanner)
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(cmds) > MaxImportEntries {
		cmds = cmds[len(cmds)-MaxImportEntries:]
	}
	return cmds, nil
}

// parseBash reads one command per line, skipping HISTTIMEFORMAT markers.
func parseBash(scanner *bufio.Scanner) []string {
	var cmds []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || isBashTimestamp(line) {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds
}

func isBashTimestamp(line string) bool {
	if !strings.HasPrefix(line, "#") || len(line) == 1 {
		return false
	}
	_, err := strconv.ParseInt(line[1:], 10, 64)
	return err == nil
}

// parseZsh understands both plain lines and the extended format
// ": <ts>:<duration>;<command>". Backslash continued commands are skipped.
func parseZsh(scanner *bufio.Scanner) []string {
	var cmds []string
	continued := false
	for scanner.Scan() {
		line := scanner.Text()
		if continued {
			continued = hasUnescapedTrailingBackslash(line)
			continue
		}
		if strings.HasPrefix(line, ": ") {
			if idx := strings.Index(line, ";"); idx != -1 {
				line = line[idx+1:]
			}
		}
		if hasUnescapedTrailingBackslash(line) {
			continued = true
			continue
		}
		if line != "" {
			cmds = append(cmds, line)
		}
	}
	return cmds
}

// parseFish reads the "- cmd: ..." entries of fish's pseudo-YAML history.
func parseFish(scanner *bufio.Scanner) []string {
	var cmds []string
	for scanner.Scan() {
		cmd, ok := strings.CutPrefix(scanner.Text(), "- cmd: ")
		if !ok || cmd == "" {
			continue
		}
		// Fish stores "\n" for newlines and "\\" for a backslash.
		if strings.Contains(strings.ReplaceAll(cmd, `\\`, ""), `\n`) {
			continue
		}
		cmds = append(cmds, strings.ReplaceAll(cmd, `\\`, `\`))
	}
	return cmds
}

// hasUnescapedTrailingBackslash reports whether line ends with an odd number
// of backslashes.
func hasUnescapedTrailingBackslash(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func foreignHistoryPath(shell string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch shell {
	case ShellBash:
		if f := os.Getenv("HISTFILE"); f != "" && DetectShell() == ShellBash {
			return f
		}
		return filepath.Join(home, ".bash_history")
	case ShellZsh:
		if f := os.Getenv("HISTFILE"); f != "" && DetectShell() == ShellZsh {
			return f
		}
		return filepath.Join(home, ".zsh_history")
	case ShellFish:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "fish", "fish_history")
	}
	return ""
}

// DetectShell returns the login shell named by $SHELL when it is one that
// can be imported.
func DetectShell() string {
	switch filepath.Base(os.Getenv("SHELL")) {
	case ShellBash:
		return ShellBash
	case ShellZsh:
		return ShellZsh
	case ShellFish:
		return ShellFish
	default:
		return ""
	}
}
