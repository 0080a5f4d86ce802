package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/handlers"
	"spendwise/internal/storage"
	"spendwise/internal/streak"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.WithField("db_path", cfg.DBPath).Info("database initialized")

	if err := ensureAdmin(ctx, db, cfg, log); err != nil {
		return err
	}

	streaks := streak.NewService(db, streak.WithPolicy(cfg.Rewards.Policy()), streak.WithLogger(log))
	h := handlers.NewHandlers(db, streaks, handlers.Options{
		SecureCookie:    cfg.SecureCookie,
		SessionDuration: cfg.SessionDuration,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(h, db, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanSessions(ctx, db, log)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func setupRouter(h *handlers.Handlers, db *storage.DB, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			log.WithError(err).Error("health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", h.Routes)
	return r
}

// ensureAdmin creates the configured admin account on an empty database.
func ensureAdmin(ctx context.Context, db *storage.DB, cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.AdminUser == "" {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	user, err := db.CreateUser(ctx, storage.NewUser{Username: cfg.AdminUser, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	log.WithField("username", user.Username).Info("created admin user")
	return nil
}

func cleanSessions(ctx context.Context, db *storage.DB, log logrus.FieldLogger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.CleanExpiredSessions(ctx)
			if err != nil {
				log.WithError(err).Warn("failed to clean expired sessions")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Debug("cleaned expired sessions")
			}
		}
	}
}
