package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
)

const tripSelect = `SELECT t.id, t.user_id, u.name, t.title, t.start_date, t.end_date, t.daily_limit, t.status
	FROM trips t JOIN users u ON u.id = t.user_id`

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var start, end string
	if err := row.Scan(&t.ID, &t.UserID, &t.OwnerName, &t.Title, &start, &end, &t.DailyLimit, &t.Status); err != nil {
		return nil, err
	}
	var err error
	if t.StartDate, err = parseDay(start); err != nil {
		return nil, fmt.Errorf("trip %d start_date: %w", t.ID, err)
	}
	if t.EndDate, err = parseDay(end); err != nil {
		return nil, fmt.Errorf("trip %d end_date: %w", t.ID, err)
	}
	return &t, nil
}

// CreateTrip inserts a trip and fills in its ID.
func (db *DB) CreateTrip(ctx context.Context, t *models.Trip) error {
	status := t.Status
	if status == "" {
		status = "aberta"
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO trips (user_id, title, start_date, end_date, daily_limit, status) VALUES (?, ?, ?, ?, ?, ?)",
		t.UserID, t.Title, formatDay(t.StartDate), formatDay(t.EndDate), t.DailyLimit.String(), status,
	)
	if err != nil {
		return wrapWrite("create trip", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	t.Status = status
	return nil
}

// GetTrip retrieves a trip by ID.
func (db *DB) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	t, err := scanTrip(db.conn.QueryRowContext(ctx, tripSelect+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("trip", id)
	}
	return t, err
}

// ListTripsByUser returns the trips owned by a user, newest first.
func (db *DB) ListTripsByUser(ctx context.Context, userID int64) ([]models.Trip, error) {
	return db.listTrips(ctx, tripSelect+" WHERE t.user_id = ? ORDER BY t.id DESC", userID)
}

// ListTrips returns every trip, newest first.
func (db *DB) ListTrips(ctx context.Context) ([]models.Trip, error) {
	return db.listTrips(ctx, tripSelect+" ORDER BY t.id DESC")
}

func (db *DB) listTrips(ctx context.Context, query string, args ...any) ([]models.Trip, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// ReassignTrip moves a trip to a new owner. Expenses follow the trip since
// their owner is always read through it; deposits keep their own user.
func (db *DB) ReassignTrip(ctx context.Context, tripID, newUserID int64) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE trips SET user_id = ? WHERE id = ?", newUserID, tripID)
	if err != nil {
		return wrapWrite("reassign trip", err)
	}
	return requireAffected(res, "trip", tripID)
}
