package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trip-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// EntryKind tells deposits and expenses apart in a statement.
type EntryKind string

const (
	KindDeposit EntryKind = "deposit"
	KindExpense EntryKind = "expense"
)

// NoTrip is the trip label of a deposit that is not tagged to a trip.
const NoTrip = "—"

// Entry is one signed line of a user's statement.
type Entry struct {
	ID          int64                `json:"id"`
	Date        time.Time            `json:"date"`
	Kind        EntryKind            `json:"kind"`
	Description string               `json:"description"`
	TripLabel   string               `json:"trip"`
	Status      models.ExpenseStatus `json:"status,omitempty"`
	// Amount is positive for deposits and negative for expenses.
	Amount decimal.Decimal `json:"amount"`
}

// BuildStatement merges the user's deposits and expenses selected by f into
// one sequence ordered by date, deposits before expenses on the same day.
// A user with no matching activity gets an empty statement.
func (l *Ledger) BuildStatement(ctx context.Context, f Filter) ([]Entry, error) {
	deposits, expenses, err := l.load(ctx, f)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(deposits)+len(expenses))
	for _, d := range deposits {
		entries = append(entries, depositEntry(d))
	}
	for _, e := range expenses {
		entries = append(entries, expenseEntry(e))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind == KindDeposit
		}
		return a.ID < b.ID
	})

	return entries, nil
}

// load runs the two queries derived from f. Statement and totals both go
// through here.
func (l *Ledger) load(ctx context.Context, f Filter) ([]models.Deposit, []models.Expense, error) {
	if _, err := l.store.GetUser(ctx, f.UserID); err != nil {
		return nil, nil, err
	}

	deposits, err := l.store.ListDeposits(ctx, f.Deposits())
	if err != nil {
		return nil, nil, fmt.Errorf("list deposits: %w", err)
	}
	expenses, err := l.store.ListExpenses(ctx, f.Expenses())
	if err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}
	return deposits, expenses, nil
}

func depositEntry(d models.Deposit) Entry {
	label := d.TripTitle
	if d.TripID == nil || label == "" {
		label = NoTrip
	}
	return Entry{
		ID:          d.ID,
		Date:        d.Date,
		Kind:        KindDeposit,
		Description: d.Note,
		TripLabel:   label,
		Amount:      d.Amount.Abs(),
	}
}

func expenseEntry(e models.Expense) Entry {
	return Entry{
		ID:          e.ID,
		Date:        e.Date,
		Kind:        KindExpense,
		Description: ExpenseDescription(e.Category, e.Description),
		TripLabel:   e.TripTitle,
		Status:      e.Status,
		Amount:      e.Amount.Abs().Neg(),
	}
}

// ExpenseDescription joins category and free text as shown on statements.
func ExpenseDescription(category, description string) string {
	if description == "" {
		return category
	}
	return category + " • " + description
}
