package models

import "time"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar day of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := t.Format(time.DateOnly)
	return d >= r.Start.Format(time.DateOnly) && d <= r.End.Format(time.DateOnly)
}

// ExpenseQuery selects expenses. Zero values mean "no constraint".
type ExpenseQuery struct {
	UserID        int64
	TripID        int64
	Period        *DateRange
	Status        ExpenseStatus
	StatusExclude []ExpenseStatus
}

// DepositQuery selects deposits. Zero values mean "no constraint".
type DepositQuery struct {
	UserID int64
	TripID int64
	Period *DateRange
}
