package picker

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Source is the history store as seen by the picker.
type Source interface {
	Entries() []string
	Session() []string
	LoadAll() error
}

// HistoryProvider implements Provider over the shell's history store.
// The first whole-history fetch loads the rest of the file.
type HistoryProvider struct {
	src      Source
	loadOnce sync.Once
	loadErr  error
}

var _ Provider = (*HistoryProvider)(nil)

// NewHistoryProvider creates a provider reading from src.
func NewHistoryProvider(src Source) *HistoryProvider {
	return &HistoryProvider{src: src}
}

// Fetch returns the unique entries matching req.Query, newest first.
func (p *HistoryProvider) Fetch(ctx context.Context, req Request) (Response, error) {
	var entries []string
	switch req.TabID {
	case TabSession:
		entries = p.src.Session()
	default:
		p.loadOnce.Do(func() { p.loadErr = p.src.LoadAll() })
		if p.loadErr != nil {
			return Response{}, fmt.Errorf("history provider: load: %w", p.loadErr)
		}
		entries = p.src.Entries()
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	matches := filter(entries, req.Query)

	start := min(max(req.Offset, 0), len(matches))
	end := len(matches)
	if req.Limit > 0 && start+req.Limit < end {
		end = start + req.Limit
	}

	return Response{
		RequestID: req.RequestID,
		Items:     matches[start:end],
		AtEnd:     end == len(matches),
	}, nil
}

// filter walks entries from newest to oldest, keeping the first
// occurrence of each command that contains query.
func filter(entries []string, query string) []string {
	q := strings.ToLower(query)
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		cmd := entries[i]
		if _, ok := seen[cmd]; ok {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(cmd), q) {
			continue
		}
		seen[cmd] = struct{}{}
		out = append(out, cmd)
	}
	return out
}
