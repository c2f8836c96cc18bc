package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore keeps the device token in the single-row device_identity table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a device token store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the stored token, or "" if none has been created.
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, "SELECT token FROM device_identity WHERE id = 1").Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying device id: %w", err)
	}
	return token, nil
}

// CreateIfAbsent stores candidate unless a token exists, then returns
// whichever token is stored.
func (s *SQLiteStore) CreateIfAbsent(ctx context.Context, candidate string) (string, error) {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO device_identity (id, token) VALUES (1, ?)", candidate,
	); err != nil {
		return "", fmt.Errorf("storing device id: %w", err)
	}
	return s.Load(ctx)
}
