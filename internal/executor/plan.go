package executor

import (
	"fmt"
	"strings"

	"github.com/runger/ash/internal/cmdutil"
	"github.com/runger/ash/internal/parser"
)

// Stage is one command of a pipeline.
type Stage struct {
	Text    string
	Command parser.ParsedCommand
}

// Group is the text between two pipes: a chain of stages joined by "&&".
type Group struct {
	Chain []Stage
}

// Plan splits line into pipe groups and chains. An empty stage in a line
// with more than one stage is a syntax error.
func Plan(p *parser.Parser, line string) ([]Group, error) {
	pieces := cmdutil.SplitUnquoted(line, cmdutil.Pipe)
	groups := make([]Group, 0, len(pieces))
	multi := len(pieces) > 1

	for _, piece := range pieces {
		links := cmdutil.SplitUnquoted(piece, cmdutil.And)
		if len(links) > 1 {
			multi = true
		}

		var g Group
		for _, link := range links {
			text := strings.TrimSpace(link)
			if text == "" {
				if multi {
					return nil, fmt.Errorf("%w: empty command in %q", ErrSyntax, strings.TrimSpace(line))
				}
				continue
			}
			g.Chain = append(g.Chain, Stage{Text: text, Command: p.Parse(text)})
		}
		groups = append(groups, g)
	}

	return groups, nil
}
