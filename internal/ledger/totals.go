package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Totals is the reduced form of a statement.
type Totals struct {
	Deposits decimal.Decimal `json:"deposits"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// ComputeTotals sums the deposits and expenses selected by f. The balance
// always equals the sum of BuildStatement(ctx, f).
func (l *Ledger) ComputeTotals(ctx context.Context, f Filter) (Totals, error) {
	deposits, expenses, err := l.load(ctx, f)
	if err != nil {
		return Totals{}, err
	}

	t := Totals{Deposits: decimal.Zero, Expenses: decimal.Zero}
	for _, d := range deposits {
		t.Deposits = t.Deposits.Add(d.Amount.Abs())
	}
	for _, e := range expenses {
		t.Expenses = t.Expenses.Add(e.Amount.Abs())
	}
	t.Balance = t.Deposits.Sub(t.Expenses)
	return t, nil
}

// Summarize reduces an already built statement to totals.
func Summarize(entries []Entry) Totals {
	t := Totals{Deposits: decimal.Zero, Expenses: decimal.Zero, Balance: decimal.Zero}
	for _, e := range entries {
		switch e.Kind {
		case KindDeposit:
			t.Deposits = t.Deposits.Add(e.Amount)
		case KindExpense:
			t.Expenses = t.Expenses.Sub(e.Amount)
		}
		t.Balance = t.Balance.Add(e.Amount)
	}
	return t
}
