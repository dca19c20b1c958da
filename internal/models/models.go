package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// ExpenseStatus is the approval state of an expense.
type ExpenseStatus string

const (
	StatusPending  ExpenseStatus = "pendente"
	StatusApproved ExpenseStatus = "aprovado"
	StatusRejected ExpenseStatus = "rejeitado"
)

// Valid reports whether s is one of the three approval states.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	BankInfo     string    `json:"bank_info"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Trip is a travel assignment owned by a single user.
type Trip struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	OwnerName  string          `json:"owner_name,omitempty"`
	Title      string          `json:"title"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
	Status     string          `json:"status"`
}

// Expense is a cost submitted against a trip. UserID and the names are
// resolved from the trip at read time.
type Expense struct {
	ID          int64           `json:"id"`
	TripID      int64           `json:"trip_id"`
	UserID      int64           `json:"user_id"`
	UserName    string          `json:"user_name,omitempty"`
	TripTitle   string          `json:"trip_title,omitempty"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ReceiptRef  string          `json:"receipt_ref,omitempty"`
	Status      ExpenseStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Deposit is money sent to a user, optionally tagged to a trip.
type Deposit struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	UserName  string          `json:"user_name,omitempty"`
	TripID    *int64          `json:"trip_id,omitempty"`
	TripTitle string          `json:"trip_title,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Note      string          `json:"note"`
}

// SessionKind distinguishes browser sessions from API bearer tokens.
type SessionKind string

const (
	SessionWeb SessionKind = "web"
	SessionAPI SessionKind = "api"
)

// Session represents a user session.
type Session struct {
	Token     string      `json:"token"`
	UserID    int64       `json:"user_id"`
	Kind      SessionKind `json:"kind"`
	ExpiresAt time.Time   `json:"expires_at"`
}
