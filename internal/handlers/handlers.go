package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trip-ledger/internal/accounts"
	"trip-ledger/internal/apperr"
	"trip-ledger/internal/export"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/logger"
	"trip-ledger/internal/models"
	"trip-ledger/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName carries one-shot messages across a redirect.
	FlashCookieName = "flash"
)

// Options configures Handlers.
type Options struct {
	TemplateDir      string
	SecureCookie     bool
	SessionDuration  time.Duration
	APITokenDuration time.Duration

	// AllowedOrigins may call the JSON API from a browser. Empty allows any.
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	ledger       *ledger.Ledger
	accounts     *accounts.Service
	templateDir  string
	secureCookie bool
	sessionTTL   time.Duration
	apiTokenTTL  time.Duration
	origins      []string
	log          zerolog.Logger
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, opts Options) *Handlers {
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = 30 * 24 * time.Hour
	}
	if opts.APITokenDuration <= 0 {
		opts.APITokenDuration = 24 * time.Hour
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Handlers{
		db:           db,
		ledger:       ledger.New(db),
		accounts:     accounts.New(db),
		templateDir:  opts.TemplateDir,
		secureCookie: opts.SecureCookie,
		sessionTTL:   opts.SessionDuration,
		apiTokenTTL:  opts.APITokenDuration,
		origins:      opts.AllowedOrigins,
		log:          opts.Logger,
		now:          time.Now,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// reqLog returns the request-scoped logger, or the handlers' own logger when
// the request did not pass through RequestLogger.
func (h *Handlers) reqLog(r *http.Request) *zerolog.Logger {
	return logger.FromContextOr(r.Context(), h.log)
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, u))
}

// AuthMiddleware wraps handlers to require a browser session.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(r.Context(), cookie.Value, models.SessionWeb)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthenticated) {
				h.reqLog(r).Error().Err(err).Msg("validate session")
			}
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Rolling session: renew if past halfway point
		now := h.now()
		if sessionInfo.ExpiresAt.Sub(now) < h.sessionTTL/2 {
			newExpiresAt := now.Add(h.sessionTTL)
			if err := h.db.RenewSession(r.Context(), cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			} else {
				h.reqLog(r).Warn().Err(err).Msg("renew session")
			}
		}

		next.ServeHTTP(w, withUser(r, sessionInfo.User))
	})
}

// RequireAdmin refuses non-admin users. It must run after AuthMiddleware.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetUserFromContext(r).IsAdmin() {
			http.Error(w, "Acesso restrito ao gestor", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Home sends admins to the dashboard and everyone else to their profile.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r).IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/perfil", http.StatusFound)
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Error string
	Email string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, skip the form
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(r.Context(), cookie.Value, models.SessionWeb); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: "Formulário inválido"})
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	user, err := h.accounts.Authenticate(r.Context(), email, r.FormValue("password"))
	switch {
	case errors.Is(err, apperr.ErrValidation):
		h.render(w, r, "login.html", LoginViewModel{Error: "Informe e-mail e senha", Email: email})
		return
	case errors.Is(err, apperr.ErrUnauthenticated):
		h.render(w, r, "login.html", LoginViewModel{Error: "Credenciais inválidas", Email: email})
		return
	case err != nil:
		h.reqLog(r).Error().Err(err).Msg("authenticate")
		h.render(w, r, "login.html", LoginViewModel{Error: "Ocorreu um erro. Tente novamente.", Email: email})
		return
	}

	token, _, err := h.accounts.OpenSession(r.Context(), user.ID, models.SessionWeb, h.sessionTTL)
	if err != nil {
		h.reqLog(r).Error().Err(err).Int64("user_id", user.ID).Msg("create session")
		h.render(w, r, "login.html", LoginViewModel{Error: "Ocorreu um erro. Tente novamente.", Email: email})
		return
	}

	h.setSessionCookie(w, token)
	h.reqLog(r).Info().Int64("user_id", user.ID).Msg("login")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.accounts.CloseSession(r.Context(), cookie.Value); err != nil {
			h.reqLog(r).Error().Err(err).Msg("delete session")
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func (h *Handlers) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: FlashCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secureCookie})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// redirect sends the browser to target with a flash message.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	h.setFlash(w, kind, message)
	http.Redirect(w, r, target, http.StatusFound)
}

// fail reports a failed form action. Domain errors go back to target as a
// flash message; anything else is logged and answered with a 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.reqLog(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}
	h.redirect(w, r, target, "danger", errorMessage(err))
}

// httpError answers a page request that cannot be rendered.
func (h *Handlers) httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.reqLog(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "Erro interno", status)
		return
	}
	http.Error(w, errorMessage(err), status)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Registro não encontrado."
	case errors.Is(err, apperr.ErrPermissionDenied):
		return "Operação não permitida: " + detail(err, apperr.ErrPermissionDenied)
	case errors.Is(err, apperr.ErrIntegrity):
		return "Operação conflita com dados existentes."
	case errors.Is(err, apperr.ErrValidation):
		return "Dados inválidos: " + detail(err, apperr.ErrValidation)
	}
	return err.Error()
}

// detail strips the kind prefix from a wrapped apperr message.
func detail(err, kind error) string {
	msg := err.Error()
	if i := strings.Index(msg, kind.Error()+": "); i >= 0 {
		return msg[i+len(kind.Error())+2:]
	}
	return msg
}

// Page is the data every template receives.
type Page struct {
	User  *models.User
	Flash *Flash
	Data  any
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"day":   func(t time.Time) string { return t.Format(time.DateOnly) },
	"neg":   func(d decimal.Decimal) bool { return d.IsNegative() },
	"kind":  export.KindLabel,
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		h.reqLog(r).Error().Err(err).Str("view", viewName).Msg("template parse")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	page := Page{User: GetUserFromContext(r), Flash: h.popFlash(w, r), Data: data}
	if err := tmpl.ExecuteTemplate(w, target, page); err != nil {
		h.reqLog(r).Error().Err(err).Str("view", viewName).Msg("template execute")
	}
}

// pathID reads a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s %q", name, chi.URLParam(r, name))
	}
	return id, nil
}

// optionalID parses an optional numeric form or query value; empty is zero.
func optionalID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, apperr.Validation("invalid id %q", s)
	}
	return id, nil
}

// StatementQuery is the period selection echoed back into filter forms.
type StatementQuery struct {
	Scope           string
	Start           string
	End             string
	IncludeRejected bool
}

// Encode renders the query for links such as the CSV download.
func (q StatementQuery) Encode() string {
	v := url.Values{}
	if q.Scope != "" {
		v.Set("scope", q.Scope)
	}
	if q.Start != "" {
		v.Set("start", q.Start)
	}
	if q.End != "" {
		v.Set("end", q.End)
	}
	if q.IncludeRejected {
		v.Set("rej", "1")
	}
	return v.Encode()
}

// periodFromQuery resolves scope, start, end and rej from the URL query.
// The returned StatementQuery carries the resolved dates so forms show them.
func (h *Handlers) periodFromQuery(r *http.Request) (*models.DateRange, StatementQuery, error) {
	q := r.URL.Query()
	sq := StatementQuery{
		Scope:           q.Get("scope"),
		IncludeRejected: q.Get("rej") == "1" || q.Get("rej") == "true",
	}
	period, err := ledger.ResolvePeriod(sq.Scope, q.Get("start"), q.Get("end"), h.now())
	if err != nil {
		return nil, sq, err
	}
	if period != nil {
		sq.Start = period.Start.Format(time.DateOnly)
		sq.End = period.End.Format(time.DateOnly)
	}
	return period, sq, nil
}
