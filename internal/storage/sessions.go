package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CreateSession records an issued token.
func (db *DB) CreateSession(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token_id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		tokenID, userID, expiresAt.UTC(), now(),
	)
	return classify(err)
}

// LookupSession returns the owner of a token that has not expired at now.
func (db *DB) LookupSession(ctx context.Context, tokenID string, now time.Time) (int64, bool, error) {
	var userID int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT user_id FROM sessions WHERE token_id = ? AND expires_at > ?",
		tokenID, now.UTC(),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// DeleteSession removes a session by token id. It reports whether a row
// was deleted.
func (db *DB) DeleteSession(ctx context.Context, tokenID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token_id = ?", tokenID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// CleanExpiredSessions removes all sessions expired at now and returns how
// many were removed.
func (db *DB) CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
