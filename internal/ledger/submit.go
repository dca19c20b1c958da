package ledger

import (
	"context"
	"strings"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
)

// ExpenseInput is an expense as submitted from a form or the API.
type ExpenseInput struct {
	TripID      int64
	Date        string
	Category    string
	Description string
	Amount      string
	ReceiptRef  string
}

// SubmitExpense records a pending expense on one of the actor's trips.
func (l *Ledger) SubmitExpense(ctx context.Context, actor *models.User, in ExpenseInput) (*models.Expense, error) {
	if actor == nil {
		return nil, apperr.PermissionDenied("login required")
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, apperr.Validation("category is required")
	}

	trip, err := l.store.GetTrip(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if trip.UserID != actor.ID {
		return nil, apperr.PermissionDenied("trip belongs to another user")
	}

	e := &models.Expense{
		TripID:      trip.ID,
		UserID:      trip.UserID,
		TripTitle:   trip.Title,
		Date:        date,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		ReceiptRef:  strings.TrimSpace(in.ReceiptRef),
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.store.InsertExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DepositInput is a deposit as entered by an admin.
type DepositInput struct {
	UserID int64
	// TripID is optional; zero means the deposit is not tagged to a trip.
	TripID int64
	Amount string
	Date   string
	Note   string
}

// RecordDeposit stores a deposit for a user. Admin only.
func (l *Ledger) RecordDeposit(ctx context.Context, actor *models.User, in DepositInput) (*models.Deposit, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can record deposits")
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	user, err := l.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	d := &models.Deposit{
		UserID:   user.ID,
		UserName: user.Name,
		Amount:   amount,
		Date:     date,
		Note:     strings.TrimSpace(in.Note),
	}
	if in.TripID != 0 {
		trip, err := l.store.GetTrip(ctx, in.TripID)
		if err != nil {
			return nil, err
		}
		d.TripID = &trip.ID
		d.TripTitle = trip.Title
	}

	if err := l.store.InsertDeposit(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
