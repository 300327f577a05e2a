// Package storage provides the SQLite command log: one row per shell
// session and one row per executed command line.
package storage

import (
	"context"
)

// Store defines the command log operations.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, s *Session) error
	EndSession(ctx context.Context, sessionID string, endTime int64) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	GetSessionByPrefix(ctx context.Context, prefix string) (*Session, error)

	// Commands
	CreateCommand(ctx context.Context, c *Command) error
	UpdateCommandEnd(ctx context.Context, commandID string, exitCode int, endTime, duration int64) error
	QueryCommands(ctx context.Context, q CommandQuery) ([]Command, error)
	TopCommands(ctx context.Context, limit int) ([]CommandCount, error)

	// Lifecycle
	Close() error
}

// Session represents one run of the shell.
type Session struct {
	SessionID       string
	StartedAtUnixMs int64
	EndedAtUnixMs   *int64
	Shell           string
	OS              string
	Hostname        string
	Username        string
	InitialCWD      string
}

// Command represents a command line executed in a session.
type Command struct {
	ID            int64
	CommandID     string
	SessionID     string
	TSStartUnixMs int64
	TSEndUnixMs   *int64
	DurationMs    *int64
	CWD           string
	Command       string
	CommandNorm   string
	CommandHash   string
	CommandName   string
	PipeCount     int
	ExitCode      *int
	IsSuccess     *bool // nil while running or unknown
}

// CommandQuery defines parameters for querying commands.
type CommandQuery struct {
	SessionID   *string
	CWD         *string
	Prefix      string // Match on the raw command text
	Substring   string // Case-insensitive match on the raw command text
	Limit       int
	Offset      int
	SuccessOnly bool
	FailureOnly bool
}

// CommandCount is a program name with the number of times it was run.
type CommandCount struct {
	Name  string
	Count int64
}
