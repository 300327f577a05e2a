package picker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// escapeRE matches terminal escape sequences: CSI (colors, cursor moves),
// OSC terminated by BEL or ST, and the two-byte charset and DEC forms.
var escapeRE = regexp.MustCompile("\x1b(?:" +
	`\[[0-9;?]*[ -/]*[@-~]` +
	`|\][^\x07\x1b]*(?:\x07|\x1b\\)` +
	`|[()*+][A-Za-z0-9]` +
	`|[#\-./][A-Za-z0-9]` +
	")")

// escapeLiterals spells typed escape prefixes, as in printf '\033[31m', in
// a form that cannot be mistaken for styling.
var escapeLiterals = strings.NewReplacer(
	`\033[`, "<ESC>[",
	`\033]`, "<ESC>]",
	`\x1b[`, "<ESC>[",
	`\x1B[`, "<ESC>[",
	`\x1b]`, "<ESC>]",
	`\x1B]`, "<ESC>]",
	`\e[`, "<ESC>[",
	`\e]`, "<ESC>]",
)

// displayItem prepares a history entry for one picker row of the given
// width. The result is for display only and is never executed.
func displayItem(s string, width int) string {
	s = escapeRE.ReplaceAllString(s, "")
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = escapeLiterals.Replace(s)
	if width > 0 {
		s = middleTruncate(s, width)
	}
	return s
}

// middleTruncate shortens s to width columns by replacing its middle with
// an ellipsis, so both the program name and the last argument stay
// visible. Below three columns it keeps the head only.
func middleTruncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width < 3 {
		return runewidth.Truncate(s, width, "")
	}

	room := width - 1 // one column for the ellipsis
	head := runewidth.Truncate(s, (room+1)/2, "")
	return head + "…" + tail(s, room/2)
}

// tail returns the longest suffix of s at most width columns wide.
func tail(s string, width int) string {
	runes := []rune(s)
	used := 0
	i := len(runes)
	for i > 0 {
		w := runewidth.RuneWidth(runes[i-1])
		if used+w > width {
			break
		}
		used += w
		i--
	}
	return string(runes[i:])
}
