// Package parser turns a raw command line into a command, its arguments and
// the components of its trailing path argument.
package parser

import (
	"strings"

	"github.com/runger/ash/internal/config"
)

// ParsedCommand is the result of parsing one command line.
type ParsedCommand struct {
	Command string
	Args    []string
	// Paths is the trailing argument split on "/". It is never empty.
	Paths []string
}

// Path returns the trailing path components joined back together.
func (p ParsedCommand) Path() string {
	return strings.Join(p.Paths, "/")
}

// Capability describes what a command does with its trailing argument.
type Capability struct {
	ExpectsPath     bool
	DirectoriesOnly bool
}

// Capabilities maps a command name, or a two-word "cmd sub" key, to its
// capability.
type Capabilities map[string]Capability

// DefaultCapabilities returns the capability table built from the default
// command metadata.
func DefaultCapabilities() Capabilities {
	return CapabilitiesFromConfig(config.DefaultCommands())
}

// CapabilitiesFromConfig converts the commands section of the config.
func CapabilitiesFromConfig(commands map[string]config.CommandConfig) Capabilities {
	caps := make(Capabilities, len(commands))
	for name, c := range commands {
		key := strings.Join(strings.Fields(name), " ")
		caps[key] = Capability{
			ExpectsPath:     c.ExpectsPath || c.DirectoriesOnly,
			DirectoriesOnly: c.DirectoriesOnly,
		}
	}
	return caps
}

// Lookup returns the capability for a command. A "cmd sub" entry wins over
// the bare command name.
func (c Capabilities) Lookup(command string, args []string) Capability {
	if len(args) > 0 {
		if capability, ok := c[command+" "+args[0]]; ok {
			return capability
		}
	}
	return c[command]
}

// Parser parses command lines against a capability table.
type Parser struct {
	caps Capabilities
	home string
}

// New creates a Parser. A nil table falls back to the defaults.
func New(caps Capabilities) *Parser {
	if caps == nil {
		caps = DefaultCapabilities()
	}
	return &Parser{caps: caps, home: config.HomeDir()}
}

// WithHome overrides the directory used for "~" expansion.
func (p *Parser) WithHome(home string) *Parser {
	p.home = home
	return p
}

// Capabilities returns the table the parser consults.
func (p *Parser) Capabilities() Capabilities {
	return p.caps
}

// Parse tokenizes line. It never fails: an empty or blank line yields an
// empty command with Paths of ".", "".
func (p *Parser) Parse(line string) ParsedCommand {
	tokens := Tokenize(line)

	var cmd ParsedCommand
	if len(tokens) > 0 {
		cmd.Command = tokens[0]
		cmd.Args = tokens[1:]
	}
	if cmd.Args == nil {
		cmd.Args = []string{}
	}

	for i, arg := range cmd.Args {
		if strings.HasPrefix(arg, "~") {
			cmd.Args[i] = p.expandHome(arg)
		}
	}

	last := ""
	if n := len(cmd.Args); n > 0 {
		last = cmd.Args[n-1]
	}
	cmd.Paths = p.ParsePath(last)

	// Options are passed through untouched.
	if last != "" && !strings.HasPrefix(last, "-") && p.caps.Lookup(cmd.Command, cmd.Args).ExpectsPath {
		cmd.Args[len(cmd.Args)-1] = cmd.Path()
	}

	return cmd
}

// ParsePath expands a leading "~", anchors relative paths at "./" and splits
// the result on "/".
func (p *Parser) ParsePath(path string) []string {
	path = p.expandHome(path)
	if !strings.HasPrefix(path, "/") {
		path = "./" + path
	}
	return strings.Split(path, "/")
}

func (p *Parser) expandHome(s string) string {
	if !strings.HasPrefix(s, "~") {
		return s
	}
	rest := strings.TrimPrefix(s, "~")
	rest = strings.TrimPrefix(rest, "/")
	return strings.TrimSuffix(p.home, "/") + "/" + rest
}

// Tokenize splits line on unquoted spaces and tabs. Single and double
// quotes each close only a region opened by the same character; the other
// quote is literal inside it. An unterminated quote runs to end of line.
func Tokenize(line string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens
}
