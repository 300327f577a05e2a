package picker

import "context"

// Provider supplies items to the picker.
type Provider interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Request describes what items the picker wants from a Provider.
type Request struct {
	RequestID uint64 // Monotonically increasing, for stale response detection
	Query     string // Case-insensitive substring filter
	TabID     string
	Limit     int
	Offset    int
}

// Response carries items back from a Provider.
type Response struct {
	RequestID uint64   // Must match Request.RequestID to be accepted
	Items     []string // Commands, newest first
	AtEnd     bool     // No more pages available
}

// Tab is a picker view over one slice of history.
type Tab struct {
	ID    string
	Label string
}

// Tab identifiers understood by HistoryProvider.
const (
	TabAll     = "all"
	TabSession = "session"
)

// DefaultTabs returns the whole-history and this-session tabs.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: TabAll, Label: "History"},
		{ID: TabSession, Label: "Session"},
	}
}
