package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/logging"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type registerRequest struct {
	Name                 string   `json:"name" validate:"required,max=255"`
	Email                string   `json:"email" validate:"required,email,max=255"`
	Password             string   `json:"password" validate:"required,min=6,max=72,eqfield=PasswordConfirmation"`
	PasswordConfirmation string   `json:"password_confirmation"`
	Roles                []string `json:"roles" validate:"required,min=1,dive,required"`
}

type profileRequest struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"omitempty,min=6,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

// Login exchanges credentials for a bearer token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.validate(&req, http.StatusUnprocessableEntity); err != nil {
		return err
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return webutil.ErrUnauthorized("Invalid email or password")
	}
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to login, please try again", err)
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return webutil.ErrUnauthorized("Invalid email or password")
	}

	token, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to login, please try again", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Login success",
		"token", token,
		"token_type", "bearer",
		"expires_in", int(h.tokens.TTL().Seconds()),
	))
	return nil
}

// Register creates a user with the requested roles. The admin role cannot be
// self-assigned.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.validate(&req, http.StatusUnprocessableEntity); err != nil {
		return err
	}
	if slices.Contains(req.Roles, models.RoleAdmin) {
		return webutil.ErrForbidden("The admin role cannot be self-assigned")
	}

	if err := h.checkEmailFree(r, req.Email, 0); err != nil {
		return err
	}
	roleIDs, err := h.resolveRoles(r, req.Roles)
	if err != nil {
		return err
	}

	hash, err := hashPassword(req.Password, "Failed to create user")
	if err != nil {
		return err
	}

	user, err := h.db.CreateUser(r.Context(), storage.NewUser{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		RoleIDs:      roleIDs,
	})
	if errors.Is(err, storage.ErrConflict) {
		return emailTaken()
	}
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to create user", err)
	}

	slog.InfoContext(r.Context(), "User registered", logging.FieldUserID, user.ID, "roles", req.Roles)
	webutil.RespondWithJSON(w, http.StatusCreated, webutil.OK("User created successfully",
		"data", map[string]any{"user": user, "roles": req.Roles},
	))
	return nil
}

// Logout invalidates the token used for this request.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	if err := h.tokens.Invalidate(r.Context(), id.Token); err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return unauthorized(err)
		}
		return webutil.ErrInternalServerWrap("Failed to logout. Please try again.", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Logout successful. Token invalidated."))
	return nil
}

// Profile returns the authenticated user with its roles.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	user, err := h.db.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return webutil.ErrNotFound("User not found")
	}
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to fetch user, please try again", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Profile retrieved successfully", "data", user))
	return nil
}

// UpdateProfile edits a user. Callers may edit themselves; admins may edit
// anyone and are the only ones allowed to change roles.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	caller, target, err := h.profileTarget(r)
	if err != nil {
		return err
	}

	var req profileRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.validate(&req, http.StatusUnprocessableEntity); err != nil {
		return err
	}

	update := storage.UserUpdate{Name: strings.TrimSpace(req.Name), Email: req.Email}
	if req.Roles != nil {
		if !h.isAdmin(r, caller.UserID) {
			return webutil.ErrForbidden("Only administrators can change roles")
		}
		roleIDs, err := h.resolveRoles(r, req.Roles)
		if err != nil {
			return err
		}
		update.RoleIDs = &roleIDs
	}
	if err := h.checkEmailFree(r, req.Email, target.ID); err != nil {
		return err
	}
	if req.Password != "" {
		hash, err := hashPassword(req.Password, "Failed to update user")
		if err != nil {
			return err
		}
		update.PasswordHash = &hash
	}

	user, err := h.db.UpdateUser(r.Context(), target.ID, update)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return webutil.ErrNotFound("User not found")
	case errors.Is(err, storage.ErrConflict):
		return emailTaken()
	case err != nil:
		return webutil.ErrInternalServerWrap("Failed to update user", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("User updated successfully", "data", user))
	return nil
}

// DeleteProfile removes a user together with its expenses and sessions.
func (h *Handlers) DeleteProfile(w http.ResponseWriter, r *http.Request) error {
	_, target, err := h.profileTarget(r)
	if err != nil {
		return err
	}

	if err := h.db.DeleteUser(r.Context(), target.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return webutil.ErrNotFound("User not found")
		}
		return webutil.ErrInternalServerWrap("Failed to delete user, please try again", err)
	}

	slog.InfoContext(r.Context(), "User deleted", logging.FieldUserID, target.ID)
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("User deleted successfully"))
	return nil
}

// profileTarget loads the user addressed by {id} and checks the caller may
// act on it.
func (h *Handlers) profileTarget(r *http.Request) (auth.Identity, *models.User, error) {
	caller, err := identity(r)
	if err != nil {
		return caller, nil, err
	}
	id, err := pathID(r, "User not found")
	if err != nil {
		return caller, nil, err
	}

	target, err := h.db.GetUserByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return caller, nil, webutil.ErrNotFound("User not found")
	}
	if err != nil {
		return caller, nil, webutil.ErrInternalServerWrap("Failed to fetch user, please try again", err)
	}

	if target.ID != caller.UserID && !h.isAdmin(r, caller.UserID) {
		return caller, nil, webutil.ErrForbidden("")
	}
	return caller, target, nil
}

func (h *Handlers) checkEmailFree(r *http.Request, email string, exceptID int64) error {
	taken, err := h.db.EmailTaken(r.Context(), email, exceptID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return emailTaken()
	}
	return nil
}

// resolveRoles maps role names to ids, reporting unknown names as a field
// error on "roles".
func (h *Handlers) resolveRoles(r *http.Request, names []string) ([]int64, error) {
	ids, err := h.db.ResolveRoleIDs(r.Context(), names)
	var nf *storage.NotFoundError
	if errors.As(err, &nf) {
		return nil, webutil.FieldError("roles", fmt.Sprintf("The selected role %q is invalid.", nf.Key))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	return ids, nil
}

// hashPassword reports passwords bcrypt cannot take as a field error on
// "password". The validator counts characters, bcrypt counts bytes.
func hashPassword(password, failMsg string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", webutil.FieldError("password",
			fmt.Sprintf("The password field must not be greater than %d bytes.", auth.MaxPasswordBytes))
	}
	if err != nil {
		return "", webutil.ErrInternalServerWrap(failMsg, err)
	}
	return hash, nil
}

func emailTaken() error {
	return webutil.FieldError("email", "The email has already been taken.")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
