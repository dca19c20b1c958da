package handlers

import (
	"net/http"
	"strconv"
	"time"

	"trip-ledger/internal/accounts"
	"trip-ledger/internal/export"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"
)

// DashboardViewModel is the admin landing page.
type DashboardViewModel struct {
	Query    StatementQuery
	Pending  []models.Expense
	Balances []ledger.UserBalance
}

// AdminDashboard shows the approval queue and every user's balance.
func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	actor := GetUserFromContext(r)
	period, sq, err := h.periodFromQuery(r)
	if err != nil {
		h.fail(w, r, "/admin", err)
		return
	}

	pending, err := h.ledger.PendingExpenses(r.Context(), actor)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	balances, err := h.ledger.Overview(r.Context(), actor, period, sq.IncludeRejected)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	h.render(w, r, "admin_dashboard.html", DashboardViewModel{Query: sq, Pending: pending, Balances: balances})
}

// SetExpenseStatus approves, rejects or reopens an expense.
func (h *Handlers) SetExpenseStatus(w http.ResponseWriter, r *http.Request) {
	back := backTo(r, "/admin")
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, back, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	e, err := h.ledger.SetStatus(r.Context(), GetUserFromContext(r), id, r.FormValue("status"))
	if err != nil {
		h.fail(w, r, back, err)
		return
	}
	h.reqLog(r).Info().Int64("expense_id", e.ID).Str("status", string(e.Status)).Msg("expense status set")
	h.redirect(w, r, back, "success", "Status atualizado para "+string(e.Status)+".")
}

// UsersViewModel lists users for administration.
type UsersViewModel struct {
	Users []models.User
}

// AdminUsers lists every user.
func (h *Handlers) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	h.render(w, r, "admin_users.html", UsersViewModel{Users: users})
}

// AdminCreateUser creates a user from the admin form.
func (h *Handlers) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	u, err := h.accounts.CreateUser(r.Context(), GetUserFromContext(r), accounts.NewUser{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Role:     models.Role(r.FormValue("role")),
		Password: r.FormValue("password"),
	})
	if err != nil {
		h.fail(w, r, "/admin/usuarios", err)
		return
	}
	h.redirect(w, r, "/admin/usuarios", "success", "Usuário "+u.Name+" criado.")
}

// AdminSetPassword resets a user's password.
func (h *Handlers) AdminSetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "/admin/usuarios", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	if err := h.accounts.SetPassword(r.Context(), GetUserFromContext(r), id, r.FormValue("new_password")); err != nil {
		h.fail(w, r, "/admin/usuarios", err)
		return
	}
	h.redirect(w, r, "/admin/usuarios", "success", "Senha atualizada.")
}

// AdminDeleteUser removes a user.
func (h *Handlers) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "/admin/usuarios", err)
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), GetUserFromContext(r), id); err != nil {
		h.fail(w, r, "/admin/usuarios", err)
		return
	}
	h.redirect(w, r, "/admin/usuarios", "success", "Usuário removido.")
}

// AdminTripsViewModel lists all trips with the users they can move to.
type AdminTripsViewModel struct {
	Trips []models.Trip
	Users []models.User
	Today string
}

// AdminTrips lists every trip.
func (h *Handlers) AdminTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.db.ListTrips(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	h.render(w, r, "admin_trips.html", AdminTripsViewModel{Trips: trips, Users: users, Today: h.now().Format(time.DateOnly)})
}

// AdminCreateTrip opens a trip for any user.
func (h *Handlers) AdminCreateTrip(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	userID, err := optionalID(r.FormValue("user_id"))
	if err != nil {
		h.fail(w, r, "/admin/viagens", err)
		return
	}
	_, err = h.accounts.CreateTrip(r.Context(), GetUserFromContext(r), accounts.NewTrip{
		UserID:     userID,
		Title:      r.FormValue("title"),
		StartDate:  r.FormValue("start_date"),
		DailyLimit: r.FormValue("daily_limit"),
	})
	if err != nil {
		h.fail(w, r, "/admin/viagens", err)
		return
	}
	h.redirect(w, r, "/admin/viagens", "success", "Viagem criada pelo gestor.")
}

// AdminReassignTrip moves a trip to another user.
func (h *Handlers) AdminReassignTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "/admin/viagens", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	userID, err := optionalID(r.FormValue("user_id"))
	if err != nil {
		h.fail(w, r, "/admin/viagens", err)
		return
	}
	if err := h.accounts.ReassignTrip(r.Context(), GetUserFromContext(r), id, userID); err != nil {
		h.fail(w, r, "/admin/viagens", err)
		return
	}
	h.redirect(w, r, "/admin/viagens", "success", "Viagem reatribuída com sucesso.")
}

// DepositsViewModel lists deposits with the data for the deposit form.
type DepositsViewModel struct {
	Deposits []models.Deposit
	Users    []models.User
	Trips    []models.Trip
	Today    string
}

// AdminDeposits lists every deposit, newest first.
func (h *Handlers) AdminDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.db.ListDeposits(r.Context(), models.DepositQuery{})
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	for i, j := 0, len(deposits)-1; i < j; i, j = i+1, j-1 {
		deposits[i], deposits[j] = deposits[j], deposits[i]
	}
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	trips, err := h.db.ListTrips(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	h.render(w, r, "admin_deposits.html", DepositsViewModel{Deposits: deposits, Users: users, Trips: trips, Today: h.now().Format(time.DateOnly)})
}

// AdminCreateDeposit records a deposit.
func (h *Handlers) AdminCreateDeposit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return
	}
	userID, err := optionalID(r.FormValue("user_id"))
	if err != nil {
		h.fail(w, r, "/admin/depositos", err)
		return
	}
	tripID, err := optionalID(r.FormValue("trip_id"))
	if err != nil {
		h.fail(w, r, "/admin/depositos", err)
		return
	}
	d, err := h.ledger.RecordDeposit(r.Context(), GetUserFromContext(r), ledger.DepositInput{
		UserID: userID,
		TripID: tripID,
		Amount: r.FormValue("amount"),
		Date:   r.FormValue("date"),
		Note:   r.FormValue("note"),
	})
	if err != nil {
		h.fail(w, r, "/admin/depositos", err)
		return
	}
	h.reqLog(r).Info().Int64("deposit_id", d.ID).Int64("user_id", d.UserID).Str("amount", d.Amount.String()).Msg("deposit recorded")
	h.redirect(w, r, "/admin/depositos", "success", "Depósito registrado.")
}

// ReportsViewModel is the admin expense report page.
type ReportsViewModel struct {
	Query   StatementQuery
	UserID  int64
	Users   []models.User
	Report  *ledger.Report
	CSVLink string
}

// reportFilter reads the report filter from the query string.
func (h *Handlers) reportFilter(r *http.Request) (ledger.ReportFilter, StatementQuery, error) {
	period, sq, err := h.periodFromQuery(r)
	if err != nil {
		return ledger.ReportFilter{}, sq, err
	}
	userID, err := optionalID(r.URL.Query().Get("user_id"))
	if err != nil {
		return ledger.ReportFilter{}, sq, err
	}
	return ledger.ReportFilter{UserID: userID, Period: period, IncludeRejected: sq.IncludeRejected}, sq, nil
}

// AdminReports lists expenses across users.
func (h *Handlers) AdminReports(w http.ResponseWriter, r *http.Request) {
	rf, sq, err := h.reportFilter(r)
	if err != nil {
		h.fail(w, r, "/admin/relatorios", err)
		return
	}
	report, err := h.ledger.BuildReport(r.Context(), GetUserFromContext(r), rf)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.httpError(w, r, err)
		return
	}

	link := sq.Encode()
	if rf.UserID != 0 {
		if link != "" {
			link += "&"
		}
		link += "user_id=" + strconv.FormatInt(rf.UserID, 10)
	}
	h.render(w, r, "admin_reports.html", ReportsViewModel{
		Query:   sq,
		UserID:  rf.UserID,
		Users:   users,
		Report:  report,
		CSVLink: "/admin/relatorios.csv?" + link,
	})
}

// AdminReportsCSV downloads the report.
func (h *Handlers) AdminReportsCSV(w http.ResponseWriter, r *http.Request) {
	rf, _, err := h.reportFilter(r)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	report, err := h.ledger.BuildReport(r.Context(), GetUserFromContext(r), rf)
	if err != nil {
		h.httpError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.ReportFilename)
	if err := export.WriteReportCSV(w, report.Expenses); err != nil {
		h.reqLog(r).Error().Err(err).Msg("write report csv")
	}
}

// backTo returns the local path the form asked to return to, or fallback.
func backTo(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if len(next) > 1 && next[0] == '/' && next[1] != '/' && next[1] != '\\' {
		return next
	}
	return fallback
}
