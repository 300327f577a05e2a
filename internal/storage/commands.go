package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/runger/ash/internal/cmdutil"
)

// ErrCommandNotFound is returned when a command record is not found.
var ErrCommandNotFound = errors.New("command record not found")

// defaultQueryLimit caps queries that do not set a limit.
const defaultQueryLimit = 1000

const commandColumns = `id, command_id, session_id, ts_start_unix_ms, ts_end_unix_ms,
       duration_ms, cwd, command, command_norm, command_hash, command_name,
       pipe_count, exit_code, is_success`

// CreateCommand inserts a command record. Normalized text, hash, program
// name and pipe count are derived from Command when not set.
func (s *SQLiteStore) CreateCommand(ctx context.Context, cmd *Command) error {
	if cmd == nil {
		return errors.New("command cannot be nil")
	}
	if cmd.CommandID == "" {
		return errors.New("command_id is required")
	}
	if cmd.SessionID == "" {
		return errors.New(errSessionIDRequired)
	}
	if cmd.CWD == "" {
		return errors.New("cwd is required")
	}
	if strings.TrimSpace(cmd.Command) == "" {
		return errors.New("command is required")
	}

	if cmd.CommandNorm == "" {
		cmd.CommandNorm = cmdutil.NormalizeCommand(cmd.Command)
	}
	if cmd.CommandHash == "" {
		cmd.CommandHash = cmdutil.HashCommand(cmd.CommandNorm)
	}
	if cmd.CommandName == "" {
		cmd.CommandName = cmdutil.CommandName(cmd.Command)
	}
	if cmd.PipeCount == 0 {
		cmd.PipeCount = cmdutil.CountPipes(cmd.Command)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (
			command_id, session_id, ts_start_unix_ms, ts_end_unix_ms,
			duration_ms, cwd, command, command_norm, command_hash,
			command_name, pipe_count, exit_code, is_success
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cmd.CommandID,
		cmd.SessionID,
		cmd.TSStartUnixMs,
		cmd.TSEndUnixMs,
		cmd.DurationMs,
		cmd.CWD,
		cmd.Command,
		cmd.CommandNorm,
		cmd.CommandHash,
		cmd.CommandName,
		cmd.PipeCount,
		cmd.ExitCode,
		boolToInt(cmd.IsSuccess),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("session_id %s does not exist", cmd.SessionID)
		}
		if isDuplicateKeyError(err) {
			return fmt.Errorf("command with id %s already exists", cmd.CommandID)
		}
		return fmt.Errorf("failed to create command: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		cmd.ID = id
	}
	return nil
}

// UpdateCommandEnd records a command's end time, duration and exit code.
func (s *SQLiteStore) UpdateCommandEnd(ctx context.Context, commandID string, exitCode int, endTime, duration int64) error {
	if commandID == "" {
		return errors.New("command_id is required")
	}

	isSuccess := 1
	if exitCode != 0 {
		isSuccess = 0
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE commands
		SET ts_end_unix_ms = ?, duration_ms = ?, exit_code = ?, is_success = ?
		WHERE command_id = ?
	`, endTime, duration, exitCode, isSuccess, commandID)
	if err != nil {
		return fmt.Errorf("failed to update command: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// QueryCommands returns commands matching q, newest first.
func (s *SQLiteStore) QueryCommands(ctx context.Context, q CommandQuery) ([]Command, error) {
	var (
		where []string
		args  []any
	)

	if q.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *q.SessionID)
	}
	if q.CWD != nil {
		where = append(where, "cwd = ?")
		args = append(args, *q.CWD)
	}
	if q.Prefix != "" {
		where = append(where, "substr(command, 1, ?) = ?")
		args = append(args, len(q.Prefix), q.Prefix)
	}
	if q.Substring != "" {
		where = append(where, "instr(lower(command), ?) > 0")
		args = append(args, strings.ToLower(q.Substring))
	}
	if q.SuccessOnly {
		where = append(where, "is_success = 1")
	}
	if q.FailureOnly {
		where = append(where, "is_success = 0")
	}

	query := `SELECT ` + commandColumns + ` FROM commands`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts_start_unix_ms DESC, id DESC LIMIT ? OFFSET ?"

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	args = append(args, limit, max(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var commands []Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commands: %w", err)
	}

	return commands, nil
}

// TopCommands returns the most frequently run program names.
func (s *SQLiteStore) TopCommands(ctx context.Context, limit int) ([]CommandCount, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT command_name, COUNT(*) AS n
		FROM commands
		WHERE command_name != ''
		GROUP BY command_name
		ORDER BY n DESC, command_name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top commands: %w", err)
	}
	defer rows.Close()

	var counts []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan command count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating command counts: %w", err)
	}
	return counts, nil
}

func scanCommand(row rowScanner) (Command, error) {
	var (
		cmd             Command
		endTime, dur    sql.NullInt64
		exitCode, isSuc sql.NullInt32
	)

	err := row.Scan(
		&cmd.ID,
		&cmd.CommandID,
		&cmd.SessionID,
		&cmd.TSStartUnixMs,
		&endTime,
		&dur,
		&cmd.CWD,
		&cmd.Command,
		&cmd.CommandNorm,
		&cmd.CommandHash,
		&cmd.CommandName,
		&cmd.PipeCount,
		&exitCode,
		&isSuc,
	)
	if err != nil {
		return Command{}, err
	}

	if endTime.Valid {
		cmd.TSEndUnixMs = &endTime.Int64
	}
	if dur.Valid {
		cmd.DurationMs = &dur.Int64
	}
	if exitCode.Valid {
		ec := int(exitCode.Int32)
		cmd.ExitCode = &ec
	}
	if isSuc.Valid {
		v := isSuc.Int32 == 1
		cmd.IsSuccess = &v
	}
	return cmd, nil
}

func boolToInt(b *bool) *int {
	if b == nil {
		return nil
	}
	v := 0
	if *b {
		v = 1
	}
	return &v
}
