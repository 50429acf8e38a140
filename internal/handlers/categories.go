package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"
)

const msgCategoryNotFound = "Category not found"

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := h.db.ListCategories(r.Context())
	if err != nil {
		return webutil.ErrInternalServerWrap("Error fetching categories", err)
	}
	if len(categories) == 0 {
		return webutil.ErrNotFound("No categories found")
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Categories retrieved successfully", "categories", categories))
	return nil
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeCategory(w, r, 0)
	if err != nil {
		return err
	}

	category, err := h.db.CreateCategory(r.Context(), req.Name, req.Description)
	if errors.Is(err, storage.ErrConflict) {
		return categoryNameTaken()
	}
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to create category, please try again", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, webutil.OK("Category created successfully", "category", category))
	return nil
}

func (h *Handlers) ShowCategory(w http.ResponseWriter, r *http.Request) error {
	category, err := h.category(r)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Category retrieved successfully", "category", category))
	return nil
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) error {
	existing, err := h.category(r)
	if err != nil {
		return err
	}
	req, err := h.decodeCategory(w, r, existing.ID)
	if err != nil {
		return err
	}

	category, err := h.db.UpdateCategory(r.Context(), existing.ID, req.Name, req.Description)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return webutil.ErrNotFound(msgCategoryNotFound)
	case errors.Is(err, storage.ErrConflict):
		return categoryNameTaken()
	case err != nil:
		return webutil.ErrInternalServerWrap("Failed to update category, please try again", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Category updated successfully", "category", category))
	return nil
}

// DeleteCategory removes a category. Categories still referenced by
// expenses are refused with 409.
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, msgCategoryNotFound)
	if err != nil {
		return err
	}

	err = h.db.DeleteCategory(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return webutil.ErrNotFound(msgCategoryNotFound)
	case errors.Is(err, storage.ErrConflict):
		return webutil.ErrConflict("Category is still used by existing expenses")
	case err != nil:
		return webutil.ErrInternalServerWrap("Failed to delete category, please try again", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Category deleted successfully"))
	return nil
}

func (h *Handlers) category(r *http.Request) (*models.Category, error) {
	id, err := pathID(r, msgCategoryNotFound)
	if err != nil {
		return nil, err
	}
	category, err := h.db.GetCategory(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, webutil.ErrNotFound(msgCategoryNotFound)
	}
	if err != nil {
		return nil, webutil.ErrInternalServerWrap("Error fetching category", err)
	}
	return category, nil
}

func (h *Handlers) decodeCategory(w http.ResponseWriter, r *http.Request, exceptID int64) (categoryRequest, error) {
	var req categoryRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate(&req, http.StatusUnprocessableEntity); err != nil {
		return req, err
	}

	taken, err := h.db.CategoryNameTaken(r.Context(), req.Name, exceptID)
	if err != nil {
		return req, webutil.ErrInternalServerWrap("Error fetching category", err)
	}
	if taken {
		return req, categoryNameTaken()
	}
	return req, nil
}

func categoryNameTaken() error {
	return webutil.FieldError("name", "The name has already been taken.")
}
