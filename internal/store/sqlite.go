package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"supportbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.SessionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		correspondent_id INTEGER PRIMARY KEY,
		topic_id         INTEGER NOT NULL,
		display_name     TEXT,
		handle           TEXT,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_topic ON sessions(topic_id);

	CREATE TABLE IF NOT EXISTS message_events (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		correspondent_id INTEGER NOT NULL,
		media_type       TEXT NOT NULL,
		direction        TEXT NOT NULL,
		preview          TEXT,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_corr ON message_events(correspondent_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess domain.Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (correspondent_id, topic_id, display_name, handle, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(correspondent_id) DO NOTHING`,
		sess.CorrespondentID, sess.TopicID, sess.DisplayName, sess.Handle, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *SQLiteStore) SessionByCorrespondent(ctx context.Context, correspondentID int64) (*domain.Session, error) {
	return s.querySession(ctx,
		`SELECT correspondent_id, topic_id, display_name, handle, created_at, updated_at
		 FROM sessions WHERE correspondent_id = ?`, correspondentID)
}

func (s *SQLiteStore) SessionByTopic(ctx context.Context, topicID int64) (*domain.Session, error) {
	return s.querySession(ctx,
		`SELECT correspondent_id, topic_id, display_name, handle, created_at, updated_at
		 FROM sessions WHERE topic_id = ?`, topicID)
}

func (s *SQLiteStore) querySession(ctx context.Context, query string, arg int64) (*domain.Session, error) {
	var sess domain.Session
	var displayName, handle sql.NullString
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&sess.CorrespondentID, &sess.TopicID, &displayName, &handle,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.DisplayName = displayName.String
	sess.Handle = handle.String
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, correspondentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE correspondent_id = ?`, correspondentID,
	)
	return err
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev domain.MessageEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_events (correspondent_id, media_type, direction, preview, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.CorrespondentID, string(ev.Media), string(ev.Direction), ev.Preview, ev.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountEvents(ctx context.Context, f domain.EventFilter) (int, error) {
	query := `SELECT COUNT(*) FROM message_events WHERE 1=1`
	var args []any
	if f.CorrespondentID != 0 {
		query += ` AND correspondent_id = ?`
		args = append(args, f.CorrespondentID)
	}
	if f.Direction != "" {
		query += ` AND direction = ?`
		args = append(args, string(f.Direction))
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
