package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/config"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/handlers"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/logging"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := db.CleanExpiredSessions(ctx, time.Now()); err != nil {
		slog.Warn("Failed to clean expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("Cleaned expired sessions", "count", n)
	}

	if err := bootstrapAdmin(ctx, db, cfg); err != nil {
		return err
	}

	tokens := auth.NewTokenService(db, auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	})
	h := handlers.NewHandlers(db, tokens, cfg.Location())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", srv.Addr, "db", cfg.DBPath, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupRouter configures the HTTP routes.
func setupRouter(h *handlers.Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	h.Routes(r)
	return r
}

// bootstrapAdmin creates the configured admin account when the database has
// no users yet.
func bootstrapAdmin(ctx context.Context, db *storage.DB, cfg *config.Config) error {
	if !cfg.BootstrapAdmin() {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	roleIDs, err := db.ResolveRoleIDs(ctx, []string{models.RoleAdmin, models.RoleUser})
	if err != nil {
		return fmt.Errorf("resolve admin roles: %w", err)
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user, err := db.CreateUser(ctx, storage.NewUser{
		Name:         cfg.AdminName,
		Email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		PasswordHash: hash,
		RoleIDs:      roleIDs,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("Created admin user", "email", user.Email, "id", user.ID)
	return nil
}
