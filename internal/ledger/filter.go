package ledger

import (
	"strings"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ScopeAll selects the whole history instead of a date range.
const ScopeAll = "all"

// Filter selects the activity a statement or a balance is computed over.
// The same Filter always produces the same store queries, so a statement and
// the totals built from one Filter cannot disagree.
type Filter struct {
	UserID int64
	// TripID restricts both deposits and expenses to one trip when non-zero.
	TripID int64
	// Period is nil for all time.
	Period          *models.DateRange
	IncludeRejected bool
}

// Expenses returns the store query for the expense side of f.
func (f Filter) Expenses() models.ExpenseQuery {
	q := models.ExpenseQuery{UserID: f.UserID, TripID: f.TripID, Period: f.Period}
	if !f.IncludeRejected {
		q.StatusExclude = []models.ExpenseStatus{models.StatusRejected}
	}
	return q
}

// Deposits returns the store query for the deposit side of f. Status never
// applies to deposits.
func (f Filter) Deposits() models.DepositQuery {
	return models.DepositQuery{UserID: f.UserID, TripID: f.TripID, Period: f.Period}
}

// NewDateRange returns the inclusive range [start, end] truncated to days.
func NewDateRange(start, end time.Time) (*models.DateRange, error) {
	s := truncateDay(start)
	e := truncateDay(end)
	if e.Before(s) {
		return nil, apperr.Validation("period end %s is before start %s", e.Format(time.DateOnly), s.Format(time.DateOnly))
	}
	return &models.DateRange{Start: s, End: e}, nil
}

// ResolvePeriod turns request parameters into a period. Scope "all" returns
// nil, meaning all time. Otherwise a missing start defaults to the first day
// of today's month and a missing end to today.
func ResolvePeriod(scope, start, end string, today time.Time) (*models.DateRange, error) {
	if scope == ScopeAll {
		return nil, nil
	}

	today = truncateDay(today)
	s := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	e := today

	var err error
	if strings.TrimSpace(start) != "" {
		if s, err = ParseDate(start); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(end) != "" {
		if e, err = ParseDate(end); err != nil {
			return nil, err
		}
	}
	return NewDateRange(s, e)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q", s)
	}
	return t, nil
}

// ParseAmount parses a strictly positive monetary amount. A comma is
// accepted as the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, apperr.Validation("amount must be positive, got %s", d)
	}
	return d, nil
}

// ParseStatus validates an approval status value.
func ParseStatus(s string) (models.ExpenseStatus, error) {
	st := models.ExpenseStatus(strings.TrimSpace(s))
	if !st.Valid() {
		return "", apperr.Validation("unknown status %q", s)
	}
	return st, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
