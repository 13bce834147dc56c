package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/survey-chat/backend/internal/model/session"
	"github.com/zhouzirui/survey-chat/backend/internal/model/user"
)

//go:embed schema.sql
var schema string

var _ session.Store = (*SessionStore)(nil)

// SessionStore persists sessions in a SQLite database so they survive restarts.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(dsn string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc sqlite 不支持多连接并发写。
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SessionStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Get loads a session; expired rows are reported as session.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	var (
		profile   sql.NullString
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT profile, created_at, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&profile, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}

	item := session.Session{
		ID:        id,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}
	if item.Expired(s.now()) {
		return session.Session{}, session.ErrNotFound
	}

	if profile.Valid && profile.String != "" {
		var p user.Profile
		if err := json.Unmarshal([]byte(profile.String), &p); err != nil {
			return session.Session{}, fmt.Errorf("decode session profile: %w", err)
		}
		item.User = &p
	}
	return item, nil
}

// Set inserts or replaces a session row.
func (s *SessionStore) Set(ctx context.Context, item session.Session) error {
	if item.ID == "" {
		return errors.New("session id is required")
	}

	var profile sql.NullString
	if item.User != nil {
		raw, err := json.Marshal(item.User)
		if err != nil {
			return fmt.Errorf("encode session profile: %w", err)
		}
		profile = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, profile, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET profile = excluded.profile, expires_at = excluded.expires_at`,
		item.ID, profile, item.CreatedAt.Unix(), item.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy deletes a session row.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Sweep deletes rows expired at now.
func (s *SessionStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}
