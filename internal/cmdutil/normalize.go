// Package cmdutil provides shared command line helpers.
package cmdutil

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/shlex"
)

// Words splits cmd the way a POSIX shell would. Input shlex rejects, such as
// an unterminated quote, falls back to whitespace splitting.
func Words(cmd string) []string {
	words, err := shlex.Split(cmd)
	if err != nil {
		return strings.Fields(cmd)
	}
	return words
}

// CommandName returns the program name of the first stage of cmd, without
// any leading directory.
func CommandName(cmd string) string {
	words := Words(LeadingStage(cmd))
	if len(words) == 0 {
		return ""
	}
	return filepath.Base(words[0])
}

// LeadingStage returns the text before the first unquoted pipe or "&&".
func LeadingStage(cmd string) string {
	return SplitUnquoted(SplitUnquoted(cmd, Pipe)[0], And)[0]
}

// NormalizeCommand normalizes a command for grouping in the command log.
// Variable arguments such as paths, URLs and numbers become placeholders.
func NormalizeCommand(cmd string) string {
	parts := Words(strings.ToLower(strings.TrimSpace(cmd)))
	if len(parts) == 0 {
		return ""
	}

	normalized := make([]string, 0, len(parts))
	normalized = append(normalized, parts[0])

	for _, part := range parts[1:] {
		switch {
		case strings.HasPrefix(part, "-"):
			normalized = append(normalized, part)
		case strings.HasPrefix(part, "/"), strings.HasPrefix(part, "~"), strings.HasPrefix(part, "./"):
			normalized = append(normalized, "<path>")
		case strings.Contains(part, "://"):
			normalized = append(normalized, "<url>")
		case IsNumeric(part):
			normalized = append(normalized, "<num>")
		default:
			normalized = append(normalized, part)
		}
	}

	return strings.Join(normalized, " ")
}

// HashCommand returns the hex SHA256 of an already normalized command.
func HashCommand(normalizedCmd string) string {
	hash := sha256.Sum256([]byte(normalizedCmd))
	return hex.EncodeToString(hash[:])
}

// IsNumeric checks if a string contains only digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
