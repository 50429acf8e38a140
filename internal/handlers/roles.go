package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"
)

const msgRoleNotFound = "Role not found"

type roleRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) error {
	roles, err := h.db.ListRoles(r.Context())
	if err != nil {
		return webutil.ErrInternalServerWrap("Error fetching roles", err)
	}
	if len(roles) == 0 {
		return webutil.ErrNotFound("No roles found")
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Roles retrieved successfully", "roles", roles))
	return nil
}

// CreateRole adds a role. Payload errors are 400 and store failures,
// duplicates included, are 409.
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeRole(w, r)
	if err != nil {
		return err
	}

	role, err := h.db.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		return webutil.ErrConflictWrap("Role creation failed", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, webutil.OK("Role created successfully", "role", role))
	return nil
}

func (h *Handlers) ShowRole(w http.ResponseWriter, r *http.Request) error {
	role, err := h.role(r)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Role retrieved successfully", "role", role))
	return nil
}

func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) error {
	existing, err := h.role(r)
	if err != nil {
		return err
	}
	req, err := h.decodeRole(w, r)
	if err != nil {
		return err
	}

	role, err := h.db.UpdateRole(r.Context(), existing.ID, req.Name, req.Description)
	if errors.Is(err, storage.ErrNotFound) {
		return webutil.ErrNotFound(msgRoleNotFound)
	}
	if err != nil {
		return webutil.ErrConflictWrap("Role update failed", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Role updated successfully", "role", role))
	return nil
}

// DeleteRole removes a role and its assignments. Users keep their accounts.
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) error {
	existing, err := h.role(r)
	if err != nil {
		return err
	}

	err = h.db.DeleteRole(r.Context(), existing.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return webutil.ErrNotFound(msgRoleNotFound)
	}
	if err != nil {
		return webutil.ErrConflictWrap("Role deletion failed", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Role deleted successfully"))
	return nil
}

func (h *Handlers) role(r *http.Request) (*models.Role, error) {
	id, err := pathID(r, msgRoleNotFound)
	if err != nil {
		return nil, err
	}
	role, err := h.db.GetRole(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, webutil.ErrNotFound(msgRoleNotFound)
	}
	if err != nil {
		return nil, webutil.ErrInternalServerWrap("Error fetching role", err)
	}
	return role, nil
}

func (h *Handlers) decodeRole(w http.ResponseWriter, r *http.Request) (roleRequest, error) {
	var req roleRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Name = strings.TrimSpace(req.Name)
	return req, h.validate(&req, http.StatusBadRequest)
}
