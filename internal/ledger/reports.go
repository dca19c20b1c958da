package ledger

import (
	"context"
	"fmt"
	"sort"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// TripSummary is a trip with the total of its non-rejected expenses.
type TripSummary struct {
	models.Trip
	Submitted decimal.Decimal `json:"submitted"`
}

// TripTotals lists the user's trips, newest first, each with the sum of
// expenses that were not rejected.
func (l *Ledger) TripTotals(ctx context.Context, userID int64) ([]TripSummary, error) {
	trips, err := l.store.ListTripsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	expenses, err := l.store.ListExpenses(ctx, Filter{UserID: userID}.Expenses())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	byTrip := make(map[int64]decimal.Decimal, len(trips))
	for _, e := range expenses {
		byTrip[e.TripID] = byTrip[e.TripID].Add(e.Amount)
	}

	out := make([]TripSummary, 0, len(trips))
	for _, t := range trips {
		out = append(out, TripSummary{Trip: t, Submitted: byTrip[t.ID]})
	}
	return out, nil
}

// PendingExpenses is the admin approval queue, oldest submission first.
func (l *Ledger) PendingExpenses(ctx context.Context, actor *models.User) ([]models.Expense, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can see the approval queue")
	}
	expenses, err := l.store.ListExpenses(ctx, models.ExpenseQuery{Status: models.StatusPending})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].CreatedAt.Before(expenses[j].CreatedAt)
	})
	return expenses, nil
}

// UserBalance is one row of the admin overview.
type UserBalance struct {
	User   models.User `json:"user"`
	Totals Totals      `json:"totals"`
}

// Overview computes totals for every user under the same period and
// rejection policy. Admin only.
func (l *Ledger) Overview(ctx context.Context, actor *models.User, period *models.DateRange, includeRejected bool) ([]UserBalance, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can see balances of other users")
	}
	users, err := l.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserBalance, 0, len(users))
	for _, u := range users {
		t, err := l.ComputeTotals(ctx, Filter{UserID: u.ID, Period: period, IncludeRejected: includeRejected})
		if err != nil {
			return nil, fmt.Errorf("totals for user %d: %w", u.ID, err)
		}
		out = append(out, UserBalance{User: u, Totals: t})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].User.Name < out[j].User.Name })
	return out, nil
}

// ReportFilter selects the expenses of the admin report. UserID zero means
// every user.
type ReportFilter struct {
	UserID          int64
	Period          *models.DateRange
	IncludeRejected bool
}

// Report is the admin expense listing with its total.
type Report struct {
	Expenses []models.Expense `json:"expenses"`
	Total    decimal.Decimal  `json:"total"`
}

// BuildReport lists expenses across users in date order. Admin only.
func (l *Ledger) BuildReport(ctx context.Context, actor *models.User, rf ReportFilter) (*Report, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can see reports")
	}
	if rf.UserID != 0 {
		if _, err := l.store.GetUser(ctx, rf.UserID); err != nil {
			return nil, err
		}
	}

	q := Filter{UserID: rf.UserID, Period: rf.Period, IncludeRejected: rf.IncludeRejected}.Expenses()
	expenses, err := l.store.ListExpenses(ctx, q)
	if err != nil {
		return nil, err
	}

	r := &Report{Expenses: expenses, Total: decimal.Zero}
	if r.Expenses == nil {
		r.Expenses = []models.Expense{}
	}
	for _, e := range expenses {
		r.Total = r.Total.Add(e.Amount)
	}
	return r, nil
}

// CategoryTotal is the spending of one category within a breakdown.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CategoryBreakdown groups the expenses selected by f by category, largest
// first. Percentages are of the returned total, rounded to one decimal.
func (l *Ledger) CategoryBreakdown(ctx context.Context, f Filter) ([]CategoryTotal, decimal.Decimal, error) {
	_, expenses, err := l.load(ctx, f)
	if err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	index := make(map[string]int)
	out := []CategoryTotal{}
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
		total = total.Add(e.Amount)
	}

	hundred := decimal.NewFromInt(100)
	for i := range out {
		if total.IsPositive() {
			out[i].Percentage = out[i].Total.Mul(hundred).Div(total).Round(1)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out, total, nil
}
