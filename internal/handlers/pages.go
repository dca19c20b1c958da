package handlers

import (
	"net/http"
	"strconv"
	"time"

	"trip-ledger/internal/accounts"
	"trip-ledger/internal/export"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ProfileViewModel is the profile page: account data plus statement.
type ProfileViewModel struct {
	Query   StatementQuery
	Entries []ledger.Entry
	Totals  ledger.Totals
	CSVLink string
}

// Profile renders the user's account data, balance and statement.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	period, sq, err := h.periodFromQuery(r)
	if err != nil {
		h.fail(w, r, "/perfil", err)
		return
	}

	f := ledger.Filter{UserID: user.ID, Period: period, IncludeRejected: sq.IncludeRejected}
	entries, err := h.ledger.BuildStatement(r.Context(), f)
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	h.render(w, r, "profile.html", ProfileViewModel{
		Query:   sq,
		Entries: entries,
		Totals:  ledger.Summarize(entries),
		CSVLink: "/perfil/extrato.csv?" + sq.Encode(),
	})
}

// UpdateProfile saves name, bank info and an optional new password.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	_, err := h.accounts.UpdateProfile(r.Context(), GetUserFromContext(r), accounts.ProfileUpdate{
		Name:        r.FormValue("name"),
		BankInfo:    r.FormValue("bank_info"),
		NewPassword: r.FormValue("new_password"),
	})
	if err != nil {
		h.fail(w, r, "/perfil", err)
		return
	}
	h.redirect(w, r, "/perfil", "success", "Perfil atualizado.")
}

// StatementCSV downloads the statement shown on the profile page.
func (h *Handlers) StatementCSV(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	period, sq, err := h.periodFromQuery(r)
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	entries, err := h.ledger.BuildStatement(r.Context(), ledger.Filter{UserID: user.ID, Period: period, IncludeRejected: sq.IncludeRejected})
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.StatementFilename(user.Name))
	if err := export.WriteStatementCSV(w, entries); err != nil {
		h.reqLog(r).Error().Err(err).Msg("write statement csv")
	}
}

// TripsViewModel lists the user's trips.
type TripsViewModel struct {
	Trips []ledger.TripSummary
}

// ListTrips renders the user's trips with the total submitted on each.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.ledger.TripTotals(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	h.render(w, r, "trips.html", TripsViewModel{Trips: trips})
}

// TripViewModel is a trip with its expenses grouped by status.
type TripViewModel struct {
	Trip     *models.Trip
	Expenses []models.Expense
	Pending  decimal.Decimal
	Approved decimal.Decimal
	Rejected decimal.Decimal
}

// ShowTrip renders one trip. Admins see every trip; employees their own.
func (h *Handlers) ShowTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	trip, err := h.accounts.VisibleTrip(r.Context(), GetUserFromContext(r), id)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	expenses, err := h.db.ListExpenses(r.Context(), models.ExpenseQuery{TripID: trip.ID})
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	vm := TripViewModel{Trip: trip, Expenses: expenses, Pending: decimal.Zero, Approved: decimal.Zero, Rejected: decimal.Zero}
	for _, e := range expenses {
		switch e.Status {
		case models.StatusPending:
			vm.Pending = vm.Pending.Add(e.Amount)
		case models.StatusApproved:
			vm.Approved = vm.Approved.Add(e.Amount)
		case models.StatusRejected:
			vm.Rejected = vm.Rejected.Add(e.Amount)
		}
	}
	h.render(w, r, "trip.html", vm)
}

// ExpenseFormViewModel is the data for the new expense form.
type ExpenseFormViewModel struct {
	Trips      []models.Trip
	TripID     int64
	Today      string
	Categories []CategoryDef
}

// NewExpenseForm renders the expense form for one of the user's trips.
func (h *Handlers) NewExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	trips, err := h.db.ListTripsByUser(r.Context(), user.ID)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	if len(trips) == 0 {
		h.redirect(w, r, "/viagens", "warning", "Crie uma viagem antes de lançar despesas.")
		return
	}
	tripID, _ := optionalID(r.URL.Query().Get("trip"))
	h.render(w, r, "expense_form.html", ExpenseFormViewModel{
		Trips:      trips,
		TripID:     tripID,
		Today:      h.now().Format(time.DateOnly),
		Categories: categories,
	})
}

// CreateExpense submits an expense for approval.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	tripID, err := optionalID(r.FormValue("trip_id"))
	if err != nil {
		h.fail(w, r, "/despesas/nova", err)
		return
	}
	e, err := h.ledger.SubmitExpense(r.Context(), GetUserFromContext(r), ledger.ExpenseInput{
		TripID:      tripID,
		Date:        r.FormValue("date"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Amount:      r.FormValue("amount"),
		ReceiptRef:  r.FormValue("receipt_ref"),
	})
	if err != nil {
		h.fail(w, r, "/despesas/nova?trip="+strconv.FormatInt(tripID, 10), err)
		return
	}
	h.redirect(w, r, "/viagens/"+strconv.FormatInt(e.TripID, 10), "success", "Despesa enviada para aprovação.")
}

// CategoryDef defines a selectable expense category.
type CategoryDef struct {
	ID    string
	Name  string
	Color string
}

var categories = []CategoryDef{
	{"alimentacao", "Alimentação", "#60a5fa"},
	{"hospedagem", "Hospedagem", "#818cf8"},
	{"transporte", "Transporte", "#a78bfa"},
	{"combustivel", "Combustível", "#fbbf24"},
	{"pedagio", "Pedágio", "#f472b6"},
	{"outros", "Outros", "#94a3b8"},
}

func categoryColor(category string) string {
	for _, c := range categories {
		if c.ID == category {
			return c.Color
		}
	}
	return "#94a3b8"
}
