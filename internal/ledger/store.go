package ledger

import (
	"context"

	"trip-ledger/internal/models"
)

// Store is the ledger store the engine reads from and writes through.
// *storage.DB implements it.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	ListTripsByUser(ctx context.Context, userID int64) ([]models.Trip, error)
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)
	ListExpenses(ctx context.Context, q models.ExpenseQuery) ([]models.Expense, error)
	ListDeposits(ctx context.Context, q models.DepositQuery) ([]models.Deposit, error)
	InsertExpense(ctx context.Context, e *models.Expense) error
	InsertDeposit(ctx context.Context, d *models.Deposit) error
	UpdateExpenseStatus(ctx context.Context, id int64, status models.ExpenseStatus) error
}

// Ledger is the statement, balance and approval engine. It holds no state
// of its own; every call reads the store.
type Ledger struct {
	store Store
}

// New creates a Ledger over store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}
