package ledger

import (
	"context"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
)

// SetStatus moves an expense to target. Only admins may do it, any state may
// go to any other, and repeating the current status is a no-op. Nothing is
// recomputed here; totals pick the new status up on the next read.
func (l *Ledger) SetStatus(ctx context.Context, actor *models.User, expenseID int64, target string) (*models.Expense, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can change an expense status")
	}

	status, err := ParseStatus(target)
	if err != nil {
		return nil, err
	}

	expense, err := l.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	if err := l.store.UpdateExpenseStatus(ctx, expenseID, status); err != nil {
		return nil, err
	}
	expense.Status = status
	return expense, nil
}
