package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/runger/ash/internal/storage"
)

var (
	logLimit   int
	logFailed  bool
	logSession string
	logCWD     string
	logTop     int
	logFormat  string
)

var logCmd = &cobra.Command{
	Use:     "log [substring]",
	Short:   "Show the command log",
	GroupID: groupCore,
	Long: `Show executed commands from the ash command log.

Every command line run by the shell is recorded with its directory,
exit status and duration. With a substring argument, only commands
containing it (case-insensitive) are shown.

Examples:
  ash log                      # Show last 20 commands
  ash log -n 50 --failed       # Show last 50 failed commands
  ash log --session 3f2a       # Show one session, by ID prefix
  ash log --cwd "$PWD"         # Show commands run in this directory
  ash log --top 10             # Show the 10 most used programs
  ash log --format json make   # Machine-readable output`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Maximum number of commands to show")
	logCmd.Flags().BoolVar(&logFailed, "failed", false, "Show only commands that exited non-zero")
	logCmd.Flags().StringVar(&logSession, "session", "", "Filter by session ID or unique ID prefix")
	logCmd.Flags().StringVar(&logCWD, "cwd", "", "Filter by working directory")
	logCmd.Flags().IntVar(&logTop, "top", 0, "Show the N most frequently run programs instead")
	logCmd.Flags().StringVar(&logFormat, "format", "text", "Output format: text or json")
}

// logEntry is the JSON form of a logged command.
type logEntry struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	StartedAt  string `json:"started_at"`
	CWD        string `json:"cwd"`
	Command    string `json:"command"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

func runLog(cmd *cobra.Command, args []string) error {
	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid --format %q (want text or json)", logFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	dbPath := cfg.CommandLogPath()
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(out, "No command log available. Database not found at: %s\n", dbPath)
		return nil
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open command log: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Second)
	defer cancel()

	if logTop > 0 {
		return printTop(ctx, out, store, logTop)
	}

	query := storage.CommandQuery{
		Limit:       logLimit,
		FailureOnly: logFailed,
	}
	if len(args) > 0 {
		query.Substring = args[0]
	}
	if logCWD != "" {
		query.CWD = &logCWD
	}
	if logSession != "" {
		sessionID, err := resolveSession(ctx, store, logSession)
		if err != nil {
			return err
		}
		query.SessionID = &sessionID
	}

	commands, err := store.QueryCommands(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query command log: %w", err)
	}

	if logFormat == "json" {
		return writeLogJSON(out, commands)
	}

	if len(commands) == 0 {
		fmt.Fprintln(out, "No commands found.")
		return nil
	}

	// Oldest at the top, like a terminal scrollback.
	width := terminalWidth()
	for i := len(commands) - 1; i >= 0; i-- {
		printCommand(out, commands[i], width)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%sShowing %d command(s)%s\n", colorDim, len(commands), colorReset)
	return nil
}

// resolveSession expands a session ID prefix to the full ID.
func resolveSession(ctx context.Context, store storage.Store, prefix string) (string, error) {
	sess, err := store.GetSession(ctx, prefix)
	if err == nil {
		return sess.SessionID, nil
	}
	if !errors.Is(err, storage.ErrSessionNotFound) {
		return "", err
	}

	sess, err = store.GetSessionByPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("session %q: %w", prefix, err)
	}
	return sess.SessionID, nil
}

func printTop(ctx context.Context, w io.Writer, store storage.Store, n int) error {
	counts, err := store.TopCommands(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to query command log: %w", err)
	}

	if logFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	}

	if len(counts) == 0 {
		fmt.Fprintln(w, "No commands found.")
		return nil
	}
	for _, c := range counts {
		fmt.Fprintf(w, "%7d  %s%s%s\n", c.Count, colorCyan, c.Name, colorReset)
	}
	return nil
}

func writeLogJSON(w io.Writer, commands []storage.Command) error {
	entries := make([]logEntry, 0, len(commands))
	for _, c := range commands {
		entries = append(entries, logEntry{
			ID:         c.CommandID,
			SessionID:  c.SessionID,
			StartedAt:  time.UnixMilli(c.TSStartUnixMs).UTC().Format(time.RFC3339),
			CWD:        c.CWD,
			Command:    c.Command,
			ExitCode:   c.ExitCode,
			DurationMs: c.DurationMs,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// printCommand writes one log line, truncating the command text so the line
// fits in width columns.
func printCommand(w io.Writer, c storage.Command, width int) {
	timestamp := time.UnixMilli(c.TSStartUnixMs).Format("2006-01-02 15:04:05")

	status := "-"
	exitCode := colorDim + status + colorReset
	if c.ExitCode != nil {
		status = fmt.Sprintf("%d", *c.ExitCode)
		if *c.ExitCode == 0 {
			exitCode = colorGreen + status + colorReset
		} else {
			exitCode = colorRed + status + colorReset
		}
	}

	duration := ""
	if c.DurationMs != nil {
		duration = formatDurationMs(*c.DurationMs)
	}

	// timestamp, two spaces, [status], two spaces
	used := len(timestamp) + 2 + len(status) + 2 + 2
	if duration != "" {
		used += len(duration) + 4
	}
	text := c.Command
	if avail := width - used; avail > 0 {
		text = runewidth.Truncate(text, avail, "…")
	}

	fmt.Fprintf(w, "%s%s%s  [%s]  %s", colorDim, timestamp, colorReset, exitCode, text)
	if duration != "" {
		fmt.Fprintf(w, "  %s(%s)%s", colorDim, duration, colorReset)
	}
	fmt.Fprintln(w)
}

func formatDurationMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
