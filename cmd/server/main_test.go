package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/config"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/handlers"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRouter(t *testing.T) {
	// Setup dependencies
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	tokens := auth.NewTokenService(db, auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"), Issuer: "test", TTL: time.Hour,
	})
	h := handlers.NewHandlers(db, tokens, time.UTC)
	mux := setupRouter(h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Verify routes
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"Health check is public", http.MethodGet, "/healthz", http.StatusOK},
		{"List expenses requires auth", http.MethodGet, "/expense", http.StatusUnauthorized},
		{"Summary requires auth", http.MethodGet, "/expense/summary", http.StatusUnauthorized},
		{"Categories require auth", http.MethodGet, "/category", http.StatusUnauthorized},
		{"Roles require auth", http.MethodGet, "/role/1", http.StatusUnauthorized},
		{"Profile requires auth", http.MethodGet, "/auth/profile", http.StatusUnauthorized},
		{"Unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"Wrong method", http.MethodPatch, "/auth/login", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, "%s %s returned unexpected status", tt.method, tt.path)
		})
	}
}

func TestBootstrapAdmin(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	cfg := &config.Config{AdminEmail: "Root@Example.com", AdminPassword: "secret123", AdminName: "Root"}
	require.NoError(t, bootstrapAdmin(ctx, db, cfg))

	user, err := db.GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, user.HasRole(models.RoleAdmin))
	assert.True(t, auth.CheckPassword("secret123", user.PasswordHash))

	// A second run leaves the existing users alone.
	cfg.AdminEmail = "other@example.com"
	require.NoError(t, bootstrapAdmin(ctx, db, cfg))
	count, err := db.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBootstrapAdminDisabled(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, bootstrapAdmin(context.Background(), db, &config.Config{}))
	count, err := db.UserCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
