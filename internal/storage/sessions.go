package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
)

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, kind models.SessionKind, expiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, kind, expires_at, last_activity) VALUES (?, ?, ?, ?, ?)",
		token, userID, string(kind), formatStamp(expiresAt), formatStamp(now),
	)
	return wrapWrite("create session", err)
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	Kind         models.SessionKind
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token of the given kind is valid and
// returns the associated user.
func (db *DB) ValidateSession(ctx context.Context, token string, kind models.SessionKind) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(ctx, token, kind)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(ctx context.Context, token string, kind models.SessionKind) (*SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.role, u.password_hash, u.bank_info, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.kind = ? AND s.expires_at > ?
	`, token, string(kind), formatStamp(time.Now()))

	var u models.User
	var role, createdAt, lastActivity, expiresAt string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.BankInfo, &createdAt, &lastActivity, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Unauthenticated("invalid or expired session")
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)

	info := &SessionInfo{User: &u, Kind: kind}
	if u.CreatedAt, err = parseStamp(createdAt); err != nil {
		return nil, fmt.Errorf("user created_at: %w", err)
	}
	if info.LastActivity, err = parseStamp(lastActivity); err != nil {
		return nil, fmt.Errorf("session last_activity: %w", err)
	}
	if info.ExpiresAt, err = parseStamp(expiresAt); err != nil {
		return nil, fmt.Errorf("session expires_at: %w", err)
	}
	return info, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		formatStamp(now), formatStamp(newExpiresAt), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions and reports how many.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatStamp(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
