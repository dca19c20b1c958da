package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"
	"trip-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed writes one deposit, one approved and one rejected expense for Carla.
func seed(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "statement.db")
	db, err := storage.NewDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	admin, err := db.CreateUser(ctx, "Admin", "admin@example.com", models.RoleAdmin, "hash")
	require.NoError(t, err)
	carla, err := db.CreateUser(ctx, "Carla", "carla@example.com", models.RoleEmployee, "hash")
	require.NoError(t, err)

	day, _ := time.Parse(time.DateOnly, "2024-05-01")
	trip := &models.Trip{UserID: carla.ID, Title: "Fortaleza", StartDate: day, EndDate: day}
	require.NoError(t, db.CreateTrip(ctx, trip))

	l := ledger.New(db)
	_, err = l.RecordDeposit(ctx, admin, ledger.DepositInput{UserID: carla.ID, TripID: trip.ID, Amount: "500", Date: "2024-05-02", Note: "adiantamento"})
	require.NoError(t, err)

	hotel, err := l.SubmitExpense(ctx, carla, ledger.ExpenseInput{TripID: trip.ID, Date: "2024-05-03", Category: "hospedagem", Amount: "180.50"})
	require.NoError(t, err)
	_, err = l.SetStatus(ctx, admin, hotel.ID, "aprovado")
	require.NoError(t, err)

	taxi, err := l.SubmitExpense(ctx, carla, ledger.ExpenseInput{TripID: trip.ID, Date: "2024-05-04", Category: "transporte", Description: "taxi", Amount: "40"})
	require.NoError(t, err)
	_, err = l.SetStatus(ctx, admin, taxi.ID, "rejeitado")
	require.NoError(t, err)

	return dbPath
}

func TestRun_Table(t *testing.T) {
	dbPath := seed(t)
	stdout := new(bytes.Buffer)

	err := run([]string{"-email", "carla@example.com", "-start", "2024-05-01", "-end", "2024-05-31", "-db", dbPath}, stdout, new(bytes.Buffer))
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Extrato de Carla")
	assert.Contains(t, out, "Depósito")
	assert.Contains(t, out, "hospedagem")
	assert.NotContains(t, out, "taxi")
	assert.Contains(t, out, "Depósitos: 500.00")
	assert.Contains(t, out, "Despesas:  180.50")
	assert.Contains(t, out, "Saldo:     319.50")
}

func TestRun_IncludeRejected(t *testing.T) {
	dbPath := seed(t)
	stdout := new(bytes.Buffer)

	err := run([]string{"-email", "carla@example.com", "-all", "-rej", "-db", dbPath}, stdout, new(bytes.Buffer))
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "transporte • taxi")
	assert.Contains(t, out, "Saldo:     279.50")
}

func TestRun_CSV(t *testing.T) {
	dbPath := seed(t)
	stdout := new(bytes.Buffer)

	err := run([]string{"-email", "CARLA@example.com", "-all", "-csv", "-db", dbPath}, stdout, new(bytes.Buffer))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Data,Tipo,Descrição,Viagem,Status,Valor", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",500.00"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",-180.50"), lines[2])
}

func TestRun_EmptyPeriod(t *testing.T) {
	dbPath := seed(t)
	stdout := new(bytes.Buffer)

	err := run([]string{"-email", "carla@example.com", "-start", "2023-01-01", "-end", "2023-01-31", "-db", dbPath}, stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Saldo:     0.00")
}

func TestRun_UnknownUser(t *testing.T) {
	dbPath := seed(t)
	err := run([]string{"-email", "nobody@example.com", "-all", "-db", dbPath}, new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRun_BadPeriod(t *testing.T) {
	err := run([]string{"-email", "carla@example.com", "-start", "2024-05-10", "-end", "2024-05-01"}, new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestRun_MissingEmail(t *testing.T) {
	stdout := new(bytes.Buffer)
	err := run(nil, stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: email")
	assert.Contains(t, stdout.String(), "Usage:")
}
