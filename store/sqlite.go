package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ TokenStore = (*SQLiteStore)(nil)

// SQLiteStore is a persistent TokenStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// initialises the schema. Use ":memory:" for an in-memory SQLite database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("apigate/store: open sqlite: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS apigate_tokens (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			issued_at  INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apigate/store: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the record for key unless it is missing or expired.
// Times are stored as Unix nanoseconds in UTC.
func (s *SQLiteStore) Load(ctx context.Context, key string) (Record, bool, error) {
	var (
		value     string
		issuedAt  int64
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT value, issued_at, expires_at FROM apigate_tokens WHERE key = ?`, key,
	).Scan(&value, &issuedAt, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("apigate/store: load %s: %w", key, err)
	}

	if expiresAt != 0 && time.Now().UnixNano() >= expiresAt {
		return Record{}, false, nil
	}

	return Record{Value: value, IssuedAt: time.Unix(0, issuedAt).UTC()}, true, nil
}

// Save upserts the record for key.
func (s *SQLiteStore) Save(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	var expiresAt int64
	if exp := expiry(time.Now(), ttl); !exp.IsZero() {
		expiresAt = exp.UnixNano()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apigate_tokens (key, value, issued_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at
	`, key, rec.Value, rec.IssuedAt.UnixNano(), expiresAt)
	if err != nil {
		return fmt.Errorf("apigate/store: save %s: %w", key, err)
	}
	return nil
}

// Delete removes the record for key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM apigate_tokens WHERE key = ?`, key)
	return err
}

// Close closes the underlying SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
