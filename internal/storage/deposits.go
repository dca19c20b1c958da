package storage

import (
	"context"
	"database/sql"
	"fmt"

	"trip-ledger/internal/models"
)

const depositSelect = `SELECT d.id, d.user_id, u.name, d.trip_id, COALESCE(t.title, ''), d.amount, d.date, d.note
	FROM deposits d
	JOIN users u ON u.id = d.user_id
	LEFT JOIN trips t ON t.id = d.trip_id`

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	var tripID sql.NullInt64
	var date string
	if err := row.Scan(&d.ID, &d.UserID, &d.UserName, &tripID, &d.TripTitle, &d.Amount, &date, &d.Note); err != nil {
		return nil, err
	}
	if tripID.Valid {
		id := tripID.Int64
		d.TripID = &id
	}
	var err error
	if d.Date, err = parseDay(date); err != nil {
		return nil, fmt.Errorf("deposit %d date: %w", d.ID, err)
	}
	return &d, nil
}

// InsertDeposit stores a new deposit and fills in its ID.
func (db *DB) InsertDeposit(ctx context.Context, d *models.Deposit) error {
	var tripID sql.NullInt64
	if d.TripID != nil {
		tripID = sql.NullInt64{Int64: *d.TripID, Valid: true}
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO deposits (user_id, trip_id, amount, date, note) VALUES (?, ?, ?, ?, ?)",
		d.UserID, tripID, d.Amount.String(), formatDay(d.Date), d.Note,
	)
	if err != nil {
		return wrapWrite("insert deposit", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListDeposits returns the deposits matching q, ordered by date then ID.
func (db *DB) ListDeposits(ctx context.Context, q models.DepositQuery) ([]models.Deposit, error) {
	var conds []string
	var args []any

	if q.UserID != 0 {
		conds = append(conds, "d.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.TripID != 0 {
		conds = append(conds, "d.trip_id = ?")
		args = append(args, q.TripID)
	}
	if q.Period != nil {
		conds = append(conds, "d.date BETWEEN ? AND ?")
		args = append(args, formatDay(q.Period.Start), formatDay(q.Period.End))
	}

	rows, err := db.conn.QueryContext(ctx, depositSelect+whereClause(conds)+" ORDER BY d.date ASC, d.id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deposits []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}
