// Package redact masks credentials in command lines before they are written
// to the command log. Matching is best effort: it catches the common token
// formats and key=value or --flag forms, not every secret a user can type.
package redact

import "regexp"

// Rule is one credential pattern and its replacement. Replacement may refer
// to capture groups.
type Rule struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

var defaultRules = []Rule{
	{
		Name:        "url credentials",
		Regex:       regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^\s:/@]+):[^\s@/]+@`),
		Replacement: "$1:[REDACTED]@",
	},
	{
		Name:        "aws access key",
		Regex:       regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`),
		Replacement: "[AWS_KEY_REDACTED]",
	},
	{
		Name:        "jwt",
		Regex:       regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		Replacement: "[JWT_REDACTED]",
	},
	{
		Name:        "github token",
		Regex:       regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36}|github_pat_[A-Za-z0-9_]{22,})\b`),
		Replacement: "[GITHUB_TOKEN_REDACTED]",
	},
	{
		Name:        "slack token",
		Regex:       regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]+`),
		Replacement: "[SLACK_TOKEN_REDACTED]",
	},
	{
		Name:        "authorization header",
		Regex:       regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9+/=._-]{16,}`),
		Replacement: "$1 [REDACTED]",
	},
	{
		// --password hunter2, --token=abc
		Name:        "secret flag",
		Regex:       regexp.MustCompile(`(?i)(--(?:password|passwd|token|secret|api[_-]?key|access[_-]?key|private[_-]?key))(=|\s+)[^\s-][^\s]*`),
		Replacement: "$1$2[REDACTED]",
	},
	{
		// PASSWORD=hunter2, api_key: abc
		Name:        "secret assignment",
		Regex:       regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:password|passwd|token|secret|api[_-]?key|private[_-]?key))(\s*[=:]\s*)[^\s'"]+`),
		Replacement: "$1$2[REDACTED]",
	},
}

// Redactor applies a list of rules in order.
type Redactor struct {
	rules []Rule
}

// New returns a Redactor with the default rules.
func New() *Redactor {
	return &Redactor{rules: Rules()}
}

// NewWithRules returns a Redactor using rules.
func NewWithRules(rules []Rule) *Redactor {
	return &Redactor{rules: rules}
}

// Rules returns a copy of the default rules.
func Rules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Line returns line with every match replaced.
func (r *Redactor) Line(line string) string {
	if line == "" {
		return line
	}
	for _, rule := range r.rules {
		line = rule.Regex.ReplaceAllString(line, rule.Replacement)
	}
	return line
}

var std = New()

// Line redacts line with the default rules.
func Line(line string) string {
	return std.Line(line)
}
