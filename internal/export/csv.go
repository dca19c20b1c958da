// Package export writes statements and expense reports as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"
)

var (
	statementHeader = []string{"Data", "Tipo", "Descrição", "Viagem", "Status", "Valor"}
	reportHeader    = []string{"Data", "Funcionário", "Viagem", "Categoria", "Descrição", "Status", "Valor", "Arquivo"}
)

// KindLabel is the statement "Tipo" column for an entry kind.
func KindLabel(k ledger.EntryKind) string {
	if k == ledger.KindDeposit {
		return "Depósito"
	}
	return "Despesa"
}

// WriteStatementCSV writes a statement with signed amounts in its own order.
func WriteStatementCSV(w io.Writer, entries []ledger.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(statementHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.Date.Format(time.DateOnly),
			KindLabel(e.Kind),
			e.Description,
			e.TripLabel,
			string(e.Status),
			e.Amount.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReportCSV writes the admin expense report. Amounts are unsigned and
// only the base name of a receipt reference is kept.
func WriteReportCSV(w io.Writer, expenses []models.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.Date.Format(time.DateOnly),
			e.UserName,
			e.TripTitle,
			e.Category,
			e.Description,
			string(e.Status),
			e.Amount.StringFixed(2),
			receiptName(e.ReceiptRef),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write expense %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// StatementFilename is the download name of a user's statement.
func StatementFilename(userName string) string {
	name := strings.Join(strings.Fields(userName), "_")
	if name == "" {
		name = "usuario"
	}
	return "extrato_" + name + ".csv"
}

// ReportFilename is the download name of the admin report.
const ReportFilename = "relatorio_gastos.csv"

func receiptName(ref string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}
