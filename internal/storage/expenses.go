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

// The owner of an expense is always the current owner of its trip.
const expenseSelect = `SELECT e.id, e.trip_id, t.user_id, u.name, t.title, e.date, e.category,
		e.description, e.amount, e.receipt_ref, e.status, e.created_at
	FROM expenses e
	JOIN trips t ON t.id = e.trip_id
	JOIN users u ON u.id = t.user_id`

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	var date, status, createdAt string
	if err := row.Scan(&e.ID, &e.TripID, &e.UserID, &e.UserName, &e.TripTitle, &date, &e.Category,
		&e.Description, &e.Amount, &e.ReceiptRef, &status, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if e.Date, err = parseDay(date); err != nil {
		return nil, fmt.Errorf("expense %d date: %w", e.ID, err)
	}
	if e.CreatedAt, err = parseStamp(createdAt); err != nil {
		return nil, fmt.Errorf("expense %d created_at: %w", e.ID, err)
	}
	e.Status = models.ExpenseStatus(status)
	return &e, nil
}

// InsertExpense stores a new expense and fills in its ID. A zero status
// becomes pending and a zero CreatedAt becomes now.
func (db *DB) InsertExpense(ctx context.Context, e *models.Expense) error {
	if e.Status == "" {
		e.Status = models.StatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO expenses (trip_id, date, category, description, amount, receipt_ref, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TripID, formatDay(e.Date), e.Category, e.Description, e.Amount.String(), e.ReceiptRef,
		string(e.Status), formatStamp(e.CreatedAt),
	)
	if err != nil {
		return wrapWrite("insert expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := scanExpense(db.conn.QueryRowContext(ctx, expenseSelect+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("expense", id)
	}
	return e, err
}

// ListExpenses returns the expenses matching q, ordered by date then ID.
func (db *DB) ListExpenses(ctx context.Context, q models.ExpenseQuery) ([]models.Expense, error) {
	var conds []string
	var args []any

	if q.UserID != 0 {
		conds = append(conds, "t.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.TripID != 0 {
		conds = append(conds, "e.trip_id = ?")
		args = append(args, q.TripID)
	}
	if q.Period != nil {
		conds = append(conds, "e.date BETWEEN ? AND ?")
		args = append(args, formatDay(q.Period.Start), formatDay(q.Period.End))
	}
	if q.Status != "" {
		conds = append(conds, "e.status = ?")
		args = append(args, string(q.Status))
	}
	if len(q.StatusExclude) > 0 {
		marks := make([]string, len(q.StatusExclude))
		for i, s := range q.StatusExclude {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "e.status NOT IN ("+strings.Join(marks, ", ")+")")
	}

	rows, err := db.conn.QueryContext(ctx, expenseSelect+whereClause(conds)+" ORDER BY e.date ASC, e.id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// UpdateExpenseStatus overwrites the approval status of an expense. Writing
// the current value again is not an error.
func (db *DB) UpdateExpenseStatus(ctx context.Context, id int64, status models.ExpenseStatus) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE expenses SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return wrapWrite("update expense status", err)
	}
	return requireAffected(res, "expense", id)
}
