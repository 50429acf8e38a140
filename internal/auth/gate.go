package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/logging"
)

// ErrForbidden is returned when the identity lacks the required role.
var ErrForbidden = errors.New("forbidden")

// RoleLister loads the role names assigned to a user. It must return an
// error when the user does not exist.
type RoleLister interface {
	UserRoleNames(ctx context.Context, userID int64) ([]string, error)
}

// Gate decides whether an identity holds a role.
type Gate struct {
	roles RoleLister
}

// NewGate creates a Gate backed by roles.
func NewGate(roles RoleLister) *Gate {
	return &Gate{roles: roles}
}

// Authorize returns nil when userID holds role and ErrForbidden otherwise.
// Lookup failures deny.
func (g *Gate) Authorize(ctx context.Context, userID int64, role string) error {
	names, err := g.roles.UserRoleNames(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "role lookup failed, denying", logging.FieldUserID, userID, "role", role, "error", err)
		return ErrForbidden
	}
	if !slices.Contains(names, role) {
		return ErrForbidden
	}
	return nil
}
