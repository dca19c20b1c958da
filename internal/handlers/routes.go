package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Routes returns the application routes: HTML pages under session auth,
// admin pages behind RequireAdmin and the JSON API under bearer auth.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/", h.Home)
		r.Get("/perfil", h.Profile)
		r.Post("/perfil", h.UpdateProfile)
		r.Get("/perfil/extrato.csv", h.StatementCSV)
		r.Get("/estatisticas", h.Statistics)
		r.Get("/viagens", h.ListTrips)
		r.Get("/viagens/{id}", h.ShowTrip)
		r.Get("/despesas/nova", h.NewExpenseForm)
		r.Post("/despesas/nova", h.CreateExpense)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)

			r.Get("/", h.AdminDashboard)
			r.Post("/despesas/{id}/status", h.SetExpenseStatus)
			r.Get("/usuarios", h.AdminUsers)
			r.Post("/usuarios", h.AdminCreateUser)
			r.Post("/usuarios/{id}/senha", h.AdminSetPassword)
			r.Post("/usuarios/{id}/remover", h.AdminDeleteUser)
			r.Get("/viagens", h.AdminTrips)
			r.Post("/viagens", h.AdminCreateTrip)
			r.Post("/viagens/{id}/reatribuir", h.AdminReassignTrip)
			r.Get("/depositos", h.AdminDeposits)
			r.Post("/depositos", h.AdminCreateDeposit)
			r.Get("/relatorios", h.AdminReports)
			r.Get("/relatorios.csv", h.AdminReportsCSV)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))

		r.Post("/login", h.APILogin)

		r.Group(func(r chi.Router) {
			r.Use(h.APIAuth)

			r.Post("/logout", h.APILogout)
			r.Get("/trips", h.APITrips)
			r.Get("/expenses", h.APIExpenses)
			r.Post("/expenses", h.APICreateExpense)
			r.Get("/statement", h.APIStatement)
			r.Get("/totals", h.APITotals)
			r.Post("/admin/expenses/{id}/status", h.APISetExpenseStatus)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		})
	})

	return r
}
