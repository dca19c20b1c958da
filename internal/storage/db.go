package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-ledger/internal/apperr"

	"modernc.org/sqlite"
)

const (
	// dayLayout is how calendar dates are stored; lexical order equals date order.
	dayLayout = time.DateOnly
	// stampLayout is a fixed-width UTC timestamp so string comparison in SQL is exact.
	stampLayout = "2006-01-02T15:04:05.000000000Z"

	sqliteConstraint = 19
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	pragmas := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 10000`,
		`PRAGMA journal_mode = WAL`,
	}
	for _, p := range pragmas {
		if _, err := db.conn.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin','employee')),
			password_hash TEXT NOT NULL,
			bank_info TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			daily_limit TEXT NOT NULL DEFAULT '0',
			status TEXT NOT NULL DEFAULT 'aberta'
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trip_id INTEGER NOT NULL REFERENCES trips(id),
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			receipt_ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pendente' CHECK(status IN ('pendente','aprovado','rejeitado')),
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS deposits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			trip_id INTEGER REFERENCES trips(id),
			amount TEXT NOT NULL,
			date TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT 'web',
			expires_at TEXT NOT NULL,
			last_activity TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_user ON trips(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_trip ON expenses(trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_date ON deposits(date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isConstraint reports whether err is a SQLite constraint violation
// (unique, foreign key, check).
func isConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqliteConstraint
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// wrapWrite turns constraint violations into apperr.ErrIntegrity.
func wrapWrite(msg string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraint(err) {
		return apperr.Integrity(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// requireAffected returns a not-found error when an update matched no row.
func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func formatDay(t time.Time) string {
	return t.Format(dayLayout)
}

func parseDay(s string) (time.Time, error) {
	return time.Parse(dayLayout, s)
}

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func parseStamp(s string) (time.Time, error) {
	return time.Parse(stampLayout, s)
}

// whereClause joins conditions with AND, or returns an empty string.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
