package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db        *storage.DB
	tokens    *auth.TokenService
	gate      *auth.Gate
	validator *validator.Validate
	loc       *time.Location
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance. loc is the timezone used to
// resolve calendar filters.
func NewHandlers(db *storage.DB, tokens *auth.TokenService, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{
		db:        db,
		tokens:    tokens,
		gate:      auth.NewGate(db),
		validator: newValidator(),
		loc:       loc,
		now:       time.Now,
	}
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's identity in the request context.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		userID, err := h.tokens.Validate(r.Context(), token)
		if err != nil {
			webutil.RespondWithError(w, unauthorized(err))
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only when the authenticated caller
// holds role. It must run after AuthMiddleware.
func (h *Handlers) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				webutil.RespondWithError(w, webutil.ErrUnauthorized("User not authenticated."))
				return
			}
			if err := h.gate.Authorize(r.Context(), id.UserID, role); err != nil {
				webutil.RespondWithError(w, webutil.ErrForbidden(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Healthz reports whether the database is reachable.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) error {
	if err := h.db.Ping(r.Context()); err != nil {
		return webutil.NewHTTPErrorWrap(http.StatusServiceUnavailable, "Database unavailable", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("ok"))
	return nil
}

func unauthorized(err error) *webutil.HTTPError {
	switch {
	case errors.Is(err, auth.ErrTokenNotProvided):
		return webutil.ErrUnauthorized("Token not provided")
	case errors.Is(err, auth.ErrTokenExpired):
		return webutil.ErrUnauthorized("Token expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		return webutil.ErrUnauthorized("Token invalid")
	}
	return webutil.ErrUnauthorizedWrap("", err)
}

// identity returns the authenticated caller. Handlers behind AuthMiddleware
// always have one.
func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return auth.Identity{}, webutil.ErrUnauthorized("User not authenticated.")
	}
	return id, nil
}

// pathID parses the {id} route parameter. Non-numeric ids cannot match any
// row and are reported as not found.
func pathID(r *http.Request, notFound string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, webutil.ErrNotFound(notFound)
	}
	return id, nil
}

// isAdmin reports whether userID holds the admin role.
func (h *Handlers) isAdmin(r *http.Request, userID int64) bool {
	return h.gate.Authorize(r.Context(), userID, models.RoleAdmin) == nil
}
