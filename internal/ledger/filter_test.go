package ledger

import (
	"testing"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterQueries(t *testing.T) {
	p := &models.DateRange{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)}

	f := Filter{UserID: 3, TripID: 9, Period: p}
	assert.Equal(t, models.ExpenseQuery{
		UserID:        3,
		TripID:        9,
		Period:        p,
		StatusExclude: []models.ExpenseStatus{models.StatusRejected},
	}, f.Expenses())
	assert.Equal(t, models.DepositQuery{UserID: 3, TripID: 9, Period: p}, f.Deposits())

	f.IncludeRejected = true
	assert.Empty(t, f.Expenses().StatusExclude)
	assert.Equal(t, models.DepositQuery{UserID: 3, TripID: 9, Period: p}, f.Deposits(), "rejection policy never touches deposits")
}

func TestResolvePeriod(t *testing.T) {
	today := time.Date(2024, 5, 17, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		scope     string
		start     string
		end       string
		wantNil   bool
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "all time", scope: ScopeAll, start: "2024-01-01", wantNil: true},
		{name: "defaults to current month", wantStart: "2024-05-01", wantEnd: "2024-05-17"},
		{name: "explicit range", scope: "period", start: "2024-02-01", end: "2024-02-29", wantStart: "2024-02-01", wantEnd: "2024-02-29"},
		{name: "only start", start: "2024-04-10", wantStart: "2024-04-10", wantEnd: "2024-05-17"},
		{name: "single day", start: "2024-03-03", end: "2024-03-03", wantStart: "2024-03-03", wantEnd: "2024-03-03"},
		{name: "end before start", start: "2024-03-04", end: "2024-03-03", wantErr: true},
		{name: "malformed", start: "03/03/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePeriod(tt.scope, tt.start, tt.end, today)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStart, got.Start.Format(time.DateOnly))
			assert.Equal(t, tt.wantEnd, got.End.Format(time.DateOnly))
		})
	}
}

func TestDateRangeContains(t *testing.T) {
	r, err := NewDateRange(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "10", want: "10"},
		{in: " 12.34 ", want: "12.34"},
		{in: "12,34", want: "12.34"},
		{in: "0.01", want: "0.01"},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "", wantErr: true},
		{in: "R$ 10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pendente", "aprovado", "rejeitado"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, models.ExpenseStatus(s), got)
	}

	for _, s := range []string{"", "approved", "APROVADO", "pago"} {
		_, err := ParseStatus(s)
		assert.ErrorIs(t, err, apperr.ErrValidation, s)
	}
}

func TestExpenseDescription(t *testing.T) {
	assert.Equal(t, "hotel", ExpenseDescription("hotel", ""))
	assert.Equal(t, "hotel • 2 noites", ExpenseDescription("hotel", "2 noites"))
}
