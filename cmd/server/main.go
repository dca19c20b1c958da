package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trip-ledger/internal/accounts"
	"trip-ledger/internal/apperr"
	"trip-ledger/internal/config"
	"trip-ledger/internal/handlers"
	"trip-ledger/internal/logger"
	"trip-ledger/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const sessionSweepInterval = time.Hour

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.EnvFileLoaded {
		log.Debug().Msg("loaded .env")
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	created, err := accounts.New(db).EnsureAdmin(ctx, accounts.BootstrapAdmin{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	switch {
	case errors.Is(err, apperr.ErrValidation):
		log.Warn().Msg("no admin user exists; set ADMIN_EMAIL and ADMIN_PASSWORD or run adduser")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to bootstrap admin")
	case created:
		log.Info().Str("email", cfg.AdminEmail).Msg("created admin user")
	}
	if n, err := db.UserCount(ctx); err == nil {
		log.Info().Str("db", cfg.DBPath).Int("users", n).Msg("database ready")
	}

	h := handlers.NewHandlers(db, handlers.Options{
		TemplateDir:      cfg.TemplateDir,
		SecureCookie:     cfg.SecureCookie,
		SessionDuration:  cfg.SessionDuration,
		APITokenDuration: cfg.APITokenDuration,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		Logger:           log,
	})

	go sweepSessions(ctx, db, log)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      setupRouter(h, cfg.StaticDir, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// setupRouter mounts static files and the application routes behind the
// request logger and panic recovery.
func setupRouter(h *handlers.Handlers, staticDir string, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(handlers.RequestLogger(log))
	r.Use(handlers.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	r.Mount("/", h.Routes())
	return r
}

// sweepSessions removes expired sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, db *storage.DB, log zerolog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanExpiredSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("clean expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("cleaned expired sessions")
			}
		}
	}
}
