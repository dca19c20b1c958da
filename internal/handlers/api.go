package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError answers with {"error": code} and the matching status.
func (h *Handlers) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.reqLog(r).Error().Err(err).Str("path", r.URL.Path).Msg("api request failed")
	}
	writeJSON(w, status, map[string]string{"error": apperr.Code(err)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// APIAuth requires a valid API bearer token.
func (h *Handlers) APIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeAPIError(w, r, apperr.Unauthenticated("missing bearer token"))
			return
		}
		user, err := h.db.ValidateSession(r.Context(), token, models.SessionAPI)
		if err != nil {
			h.writeAPIError(w, r, err)
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a fresh API token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// APILogin exchanges credentials for a bearer token.
func (h *Handlers) APILogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	token, expiresAt, err := h.accounts.OpenSession(r.Context(), user.ID, models.SessionAPI, h.apiTokenTTL)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// APILogout revokes the token used for the request.
func (h *Handlers) APILogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.CloseSession(r.Context(), bearerToken(r)); err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// APITrips lists the caller's trips with submitted totals.
func (h *Handlers) APITrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.ledger.TripTotals(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// APIExpenses lists the caller's expenses, optionally for one trip and
// period. Rejected expenses are included unless rej=0.
func (h *Handlers) APIExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tripID, err := optionalID(q.Get("trip_id"))
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	var period *models.DateRange
	if q.Get("start") != "" || q.Get("end") != "" {
		if period, err = ledger.ResolvePeriod("", q.Get("start"), q.Get("end"), h.now()); err != nil {
			h.writeAPIError(w, r, err)
			return
		}
	}
	f := ledger.Filter{UserID: GetUserFromContext(r).ID, TripID: tripID, Period: period, IncludeRejected: q.Get("rej") != "0"}
	expenses, err := h.db.ListExpenses(r.Context(), f.Expenses())
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// Amount is a money value sent either as a JSON number or as a string. The
// text is parsed later by ledger.ParseAmount, so "12,50" is accepted.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// ExpenseRequest is the body of POST /api/expenses. Form encoded bodies are
// accepted too.
type ExpenseRequest struct {
	TripID      int64  `json:"trip_id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	ReceiptRef  string `json:"receipt_ref"`
}

// APICreateExpense submits an expense for approval.
func (h *Handlers) APICreateExpense(w http.ResponseWriter, r *http.Request) {
	req, err := expenseRequest(r)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	e, err := h.ledger.SubmitExpense(r.Context(), GetUserFromContext(r), ledger.ExpenseInput{
		TripID:      req.TripID,
		Date:        req.Date,
		Category:    req.Category,
		Description: req.Description,
		Amount:      string(req.Amount),
		ReceiptRef:  req.ReceiptRef,
	})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": e.ID})
}

func expenseRequest(r *http.Request) (ExpenseRequest, error) {
	var req ExpenseRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := decodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, apperr.Validation("invalid form body")
	}
	tripID, err := optionalID(r.FormValue("trip_id"))
	if err != nil {
		return req, err
	}
	return ExpenseRequest{
		TripID:      tripID,
		Date:        r.FormValue("date"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Amount:      Amount(r.FormValue("amount")),
		ReceiptRef:  r.FormValue("receipt_ref"),
	}, nil
}

// statementFilter reads the statement filter of an API request. Admins may
// pass user_id to read another user's statement.
func (h *Handlers) statementFilter(r *http.Request) (ledger.Filter, error) {
	actor := GetUserFromContext(r)
	period, sq, err := h.periodFromQuery(r)
	if err != nil {
		return ledger.Filter{}, err
	}
	f := ledger.Filter{UserID: actor.ID, Period: period, IncludeRejected: sq.IncludeRejected}

	userID, err := optionalID(r.URL.Query().Get("user_id"))
	if err != nil {
		return ledger.Filter{}, err
	}
	if userID != 0 && userID != actor.ID {
		if !actor.IsAdmin() {
			return ledger.Filter{}, apperr.PermissionDenied("only admins can read other users' statements")
		}
		f.UserID = userID
	}
	if f.TripID, err = optionalID(r.URL.Query().Get("trip_id")); err != nil {
		return ledger.Filter{}, err
	}
	return f, nil
}

// StatementResponse is a statement with its totals.
type StatementResponse struct {
	Entries []ledger.Entry `json:"entries"`
	Totals  ledger.Totals  `json:"totals"`
}

// APIStatement returns the signed statement for the requested period.
func (h *Handlers) APIStatement(w http.ResponseWriter, r *http.Request) {
	f, err := h.statementFilter(r)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	entries, err := h.ledger.BuildStatement(r.Context(), f)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatementResponse{Entries: entries, Totals: ledger.Summarize(entries)})
}

// APITotals returns deposits, expenses and balance for the requested period.
func (h *Handlers) APITotals(w http.ResponseWriter, r *http.Request) {
	f, err := h.statementFilter(r)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	totals, err := h.ledger.ComputeTotals(r.Context(), f)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// StatusRequest is the body of the status change endpoint.
type StatusRequest struct {
	Status string `json:"status"`
}

// APISetExpenseStatus changes an expense's approval status. Admin only.
func (h *Handlers) APISetExpenseStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	e, err := h.ledger.SetStatus(r.Context(), GetUserFromContext(r), id, req.Status)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	h.reqLog(r).Info().Int64("expense_id", e.ID).Str("status", string(e.Status)).Msg("expense status set")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": e.Status})
}
