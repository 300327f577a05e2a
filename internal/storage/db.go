package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runger/ash/internal/logging"
)

const (
	// walCheckpointInterval is how often the WAL file is checkpointed so a
	// long-lived shell does not grow it without bound.
	walCheckpointInterval = 5 * time.Minute
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	stopCh    chan struct{} // signals background goroutines to stop
	stoppedCh chan struct{} // signals background goroutines have stopped
	closeOnce sync.Once
	closeErr  error
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for background maintenance errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = logging.OrDiscard(logger)
	}
}

// NewSQLiteStore opens (creating if needed) the database at dbPath with WAL
// mode enabled and the schema migrated to the latest version.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{
		db:        db,
		logger:    logging.Discard(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	go store.walCheckpointLoop()

	return store, nil
}

// Close stops background maintenance and closes the database.
// It is safe to call Close multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			<-s.stoppedCh
		}

		if s.db != nil {
			// Merge the WAL into the main file before closing.
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) walCheckpointLoop() {
	defer close(s.stoppedCh)

	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				logging.LogSQLiteError(s.logger, "wal_checkpoint", err)
			}
		}
	}
}

// migrate brings the schema up to the latest version.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	currentVersion := 0
	row := s.db.QueryRowContext(ctx, `
		SELECT version FROM schema_meta ORDER BY version DESC LIMIT 1
	`)
	if err := row.Scan(&currentVersion); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows), isTableNotFoundError(err):
			currentVersion = 0
		default:
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{version: 1, sql: migrationV1},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}

		_, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO schema_meta (version, applied_at_unix_ms)
			VALUES (?, ?)
		`, m.version, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.version, err)
		}
	}

	return nil
}

func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist")
}

func isDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

const migrationV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
  version INTEGER PRIMARY KEY,
  applied_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  started_at_unix_ms INTEGER NOT NULL,
  ended_at_unix_ms INTEGER,
  shell TEXT NOT NULL,
  os TEXT NOT NULL,
  hostname TEXT,
  username TEXT,
  initial_cwd TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at_unix_ms DESC);

CREATE TABLE IF NOT EXISTS commands (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  command_id TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL REFERENCES sessions(session_id),

  ts_start_unix_ms INTEGER NOT NULL,
  ts_end_unix_ms INTEGER,
  duration_ms INTEGER,

  cwd TEXT NOT NULL,

  command TEXT NOT NULL,
  command_norm TEXT NOT NULL,
  command_hash TEXT NOT NULL,
  command_name TEXT NOT NULL DEFAULT '',
  pipe_count INTEGER NOT NULL DEFAULT 0,

  exit_code INTEGER,
  is_success INTEGER
);

CREATE INDEX IF NOT EXISTS idx_commands_session ON commands(session_id, ts_start_unix_ms DESC);
CREATE INDEX IF NOT EXISTS idx_commands_ts ON commands(ts_start_unix_ms DESC);
CREATE INDEX IF NOT EXISTS idx_commands_cwd ON commands(cwd, ts_start_unix_ms DESC);
CREATE INDEX IF NOT EXISTS idx_commands_name ON commands(command_name);
CREATE INDEX IF NOT EXISTS idx_commands_hash ON commands(command_hash);
`
