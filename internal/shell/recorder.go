package shell

import (
	"context"
	"log/slog"
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/runger/ash/internal/logging"
	"github.com/runger/ash/internal/storage"
)

// recorder writes the session and its commands to the command log. All
// failures are logged; the command log never interrupts the shell.
type recorder struct {
	store     storage.Store
	sessionID string
	logger    *slog.Logger
	started   bool

	// redact rewrites the command text before it is stored; nil stores it
	// verbatim.
	redact func(string) string
}

func newRecorder(store storage.Store, sessionID string, logger *slog.Logger, redact func(string) string) *recorder {
	return &recorder{store: store, sessionID: sessionID, logger: logging.OrDiscard(logger), redact: redact}
}

func (r *recorder) start(ctx context.Context) {
	if r == nil || r.store == nil {
		return
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "/"
	}
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	err := r.store.CreateSession(ctx, &storage.Session{
		SessionID:       r.sessionID,
		StartedAtUnixMs: time.Now().UnixMilli(),
		Shell:           "ash",
		OS:              runtime.GOOS,
		Hostname:        hostname,
		Username:        username,
		InitialCWD:      cwd,
	})
	if err != nil {
		logging.LogSQLiteError(r.logger, "create_session", err)
		return
	}
	r.started = true
}

// begin records a command before it runs and returns a func that records
// its outcome.
func (r *recorder) begin(ctx context.Context, line string) func(status int) {
	if r == nil || !r.started {
		return func(int) {}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "/"
	}
	if r.redact != nil {
		line = r.redact(line)
	}
	start := time.Now()
	cmd := &storage.Command{
		CommandID:     uuid.NewString(),
		SessionID:     r.sessionID,
		TSStartUnixMs: start.UnixMilli(),
		CWD:           cwd,
		Command:       line,
	}
	if err := r.store.CreateCommand(ctx, cmd); err != nil {
		logging.LogSQLiteError(r.logger, "create_command", err)
		return func(int) {}
	}

	return func(status int) {
		end := time.Now()
		// The run context may already be cancelled by a shutdown signal.
		err := r.store.UpdateCommandEnd(context.WithoutCancel(ctx), cmd.CommandID, status, end.UnixMilli(), end.Sub(start).Milliseconds())
		if err != nil {
			logging.LogSQLiteError(r.logger, "update_command", err)
		}
	}
}

func (r *recorder) end() {
	if r == nil || !r.started {
		return
	}
	if err := r.store.EndSession(context.Background(), r.sessionID, time.Now().UnixMilli()); err != nil {
		logging.LogSQLiteError(r.logger, "end_session", err)
	}
	r.started = false
}
