package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/ledger/mocks"
	"trip-ledger/internal/models"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_SetStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	admin := &models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin}
	employee := &models.User{ID: 2, Name: "Carla", Role: models.RoleEmployee}
	stored := &models.Expense{ID: 7, TripID: 3, UserID: 2, Amount: decimal.NewFromInt(40), Status: models.StatusPending}
	dbErr := errors.New("disk I/O error")

	tests := []struct {
		name       string
		actor      *models.User
		target     string
		setupMocks func(store *mocks.MockStore)
		wantStatus models.ExpenseStatus
		wantErr    error
	}{
		{
			name:       "employee cannot change status",
			actor:      employee,
			target:     "aprovado",
			setupMocks: func(store *mocks.MockStore) {},
			wantErr:    apperr.ErrPermissionDenied,
		},
		{
			name:       "anonymous cannot change status",
			actor:      nil,
			target:     "aprovado",
			setupMocks: func(store *mocks.MockStore) {},
			wantErr:    apperr.ErrPermissionDenied,
		},
		{
			name:       "unknown status is rejected before any lookup",
			actor:      admin,
			target:     "pago",
			setupMocks: func(store *mocks.MockStore) {},
			wantErr:    apperr.ErrValidation,
		},
		{
			name:   "missing expense",
			actor:  admin,
			target: "aprovado",
			setupMocks: func(store *mocks.MockStore) {
				store.EXPECT().GetExpense(gomock.Any(), int64(7)).Return(nil, apperr.NotFound("expense", 7))
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:   "approve",
			actor:  admin,
			target: "aprovado",
			setupMocks: func(store *mocks.MockStore) {
				cp := *stored
				store.EXPECT().GetExpense(gomock.Any(), int64(7)).Return(&cp, nil)
				store.EXPECT().UpdateExpenseStatus(gomock.Any(), int64(7), models.StatusApproved).Return(nil)
			},
			wantStatus: models.StatusApproved,
		},
		{
			name:   "same status is a no-op success",
			actor:  admin,
			target: "pendente",
			setupMocks: func(store *mocks.MockStore) {
				cp := *stored
				store.EXPECT().GetExpense(gomock.Any(), int64(7)).Return(&cp, nil)
				store.EXPECT().UpdateExpenseStatus(gomock.Any(), int64(7), models.StatusPending).Return(nil)
			},
			wantStatus: models.StatusPending,
		},
		{
			name:   "store failure is returned",
			actor:  admin,
			target: "rejeitado",
			setupMocks: func(store *mocks.MockStore) {
				cp := *stored
				store.EXPECT().GetExpense(gomock.Any(), int64(7)).Return(&cp, nil)
				store.EXPECT().UpdateExpenseStatus(gomock.Any(), int64(7), models.StatusRejected).Return(dbErr)
			},
			wantErr: dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockStore(ctrl)
			tt.setupMocks(store)

			got, err := ledger.New(store).SetStatus(context.Background(), tt.actor, 7, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, int64(7), got.ID)
		})
	}
}

func TestLedger_BuildStatementPropagatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	dbErr := errors.New("database is locked")
	store.EXPECT().GetUser(gomock.Any(), int64(2)).Return(&models.User{ID: 2}, nil)
	store.EXPECT().ListDeposits(gomock.Any(), gomock.Any()).Return(nil, dbErr)

	_, err := ledger.New(store).BuildStatement(context.Background(), ledger.Filter{UserID: 2})
	assert.ErrorIs(t, err, dbErr)
}

func TestLedger_ComputeTotalsUsesStatementQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := &models.DateRange{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)}
	f := ledger.Filter{UserID: 2, Period: p}

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().GetUser(gomock.Any(), int64(2)).Return(&models.User{ID: 2}, nil).Times(2)
	store.EXPECT().ListDeposits(gomock.Any(), f.Deposits()).Return([]models.Deposit{
		{ID: 1, UserID: 2, Amount: decimal.RequireFromString("300"), Date: p.Start},
	}, nil).Times(2)
	store.EXPECT().ListExpenses(gomock.Any(), f.Expenses()).Return([]models.Expense{
		{ID: 4, UserID: 2, Category: "food", Amount: decimal.RequireFromString("45.50"), Date: p.Start, Status: models.StatusApproved},
	}, nil).Times(2)

	l := ledger.New(store)
	entries, err := l.BuildStatement(context.Background(), f)
	require.NoError(t, err)
	totals, err := l.ComputeTotals(context.Background(), f)
	require.NoError(t, err)

	assert.Len(t, entries, 2)
	assert.Equal(t, "254.5", totals.Balance.String())
	assert.True(t, ledger.Summarize(entries).Balance.Equal(totals.Balance))
}
