package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
)

const userColumns = "id, name, email, role, password_hash, bank_info, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role, createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.BankInfo, &createdAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	t, err := parseStamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("user %d created_at: %w", u.ID, err)
	}
	u.CreatedAt = t
	return &u, nil
}

// CreateUser creates a new user. Emails are stored lower-cased; a duplicate
// email yields apperr.ErrIntegrity.
func (db *DB) CreateUser(ctx context.Context, name, email string, role models.Role, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (name, email, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		name, strings.ToLower(strings.TrimSpace(email)), string(role), passwordHash, formatStamp(time.Now()),
	)
	if err != nil {
		return nil, wrapWrite("create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", id)
	}
	return u, err
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)),
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, email)
	}
	return u, err
}

// ListUsers returns all users, admins first, then by name.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY role ASC, name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserProfile changes the name and bank info of a user.
func (db *DB) UpdateUserProfile(ctx context.Context, id int64, name, bankInfo string) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE users SET name = ?, bank_info = ? WHERE id = ?", name, bankInfo, id)
	if err != nil {
		return wrapWrite("update user", err)
	}
	return requireAffected(res, "user", id)
}

// SetUserPassword replaces the password hash of a user.
func (db *DB) SetUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return requireAffected(res, "user", id)
}

// DeleteUser removes a user and their sessions. Users still referenced by
// trips or deposits cannot be deleted.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return wrapWrite("delete user", err)
	}
	return requireAffected(res, "user", id)
}

// CountAdmins returns the number of users with the admin role.
func (db *DB) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count)
	return count, err
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
