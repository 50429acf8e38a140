package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/period"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/storage"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"
)

const msgExpenseNotFound = "Expense not found."

type expenseRequest struct {
	Name        string        `json:"name" validate:"required,max=255"`
	Category    string        `json:"category" validate:"required,max=255"`
	Amount      *models.Money `json:"amount" validate:"required"`
	Description string        `json:"description" validate:"required,max=255"`
	ExpenseDate string        `json:"expense_date"`
}

// ListExpenses returns the caller's expenses, optionally restricted by the
// filter, start_date and end_date query parameters.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	rng, err := h.dateRange(r)
	if err != nil {
		return err
	}

	expenses, err := h.db.ListExpenses(r.Context(), id.UserID, rng)
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to retrieve expenses.", err)
	}
	if len(expenses) == 0 {
		return webutil.ErrNotFound("No expenses found.")
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Expenses retrieved successfully.", "expenses", expenses))
	return nil
}

// CreateExpense records an expense owned by the caller.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	in, err := h.decodeExpense(w, r)
	if err != nil {
		return err
	}

	expense, err := h.db.CreateExpense(r.Context(), storage.NewExpense{
		UserID:      id.UserID,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Amount:      in.Amount,
		Description: in.Description,
		ExpenseDate: in.ExpenseDate,
	})
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to create expense. Please try again.", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, webutil.OK("Expense created successfully", "expense", expense))
	return nil
}

// ShowExpense returns one of the caller's expenses.
func (h *Handlers) ShowExpense(w http.ResponseWriter, r *http.Request) error {
	expense, err := h.ownedExpense(r)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Expense retrieved successfully.", "expense", expense))
	return nil
}

// UpdateExpense replaces the fields of one of the caller's expenses. An
// omitted expense_date keeps the stored date.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) error {
	existing, err := h.ownedExpense(r)
	if err != nil {
		return err
	}
	in, err := h.decodeExpense(w, r)
	if err != nil {
		return err
	}

	expense, err := h.db.UpdateExpense(r.Context(), existing.ID, in)
	if errors.Is(err, storage.ErrNotFound) {
		return webutil.ErrNotFound(msgExpenseNotFound)
	}
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to update expense. Please try again.", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Expense updated successfully", "expense", expense))
	return nil
}

// DeleteExpense removes one of the caller's expenses.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) error {
	existing, err := h.ownedExpense(r)
	if err != nil {
		return err
	}

	if err := h.db.DeleteExpense(r.Context(), existing.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return webutil.ErrNotFound(msgExpenseNotFound)
		}
		return webutil.ErrInternalServerWrap("Failed to delete expense. Please try again.", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Expense deleted successfully"))
	return nil
}

// ownedExpense loads the expense addressed by {id}. Missing rows are 404,
// rows owned by someone else are 403.
func (h *Handlers) ownedExpense(r *http.Request) (*models.Expense, error) {
	caller, err := identity(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, msgExpenseNotFound)
	if err != nil {
		return nil, err
	}

	expense, err := h.db.GetExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, webutil.ErrNotFound(msgExpenseNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load expense: %w", err)
	}
	if expense.UserID != caller.UserID {
		return nil, webutil.ErrForbidden("")
	}
	return expense, nil
}

// decodeExpense reads and validates an expense payload and resolves its
// category name.
func (h *Handlers) decodeExpense(w http.ResponseWriter, r *http.Request) (storage.ExpenseUpdate, error) {
	var req expenseRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return storage.ExpenseUpdate{}, err
	}
	if err := h.validate(&req, http.StatusUnprocessableEntity); err != nil {
		return storage.ExpenseUpdate{}, err
	}

	var date time.Time
	if strings.TrimSpace(req.ExpenseDate) != "" {
		d, err := period.ParseDate(req.ExpenseDate, h.loc)
		if err != nil {
			return storage.ExpenseUpdate{}, webutil.FieldError("expense_date", "The expense date field must be a valid date.")
		}
		date = d
	}

	categoryID, err := h.db.ResolveCategoryID(r.Context(), strings.TrimSpace(req.Category))
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ExpenseUpdate{}, webutil.FieldError("category", "The selected category is invalid.")
	}
	if err != nil {
		return storage.ExpenseUpdate{}, fmt.Errorf("resolve category: %w", err)
	}

	return storage.ExpenseUpdate{
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(req.Name),
		Amount:      *req.Amount,
		Description: req.Description,
		ExpenseDate: date,
	}, nil
}

// dateRange resolves the filter query parameters. A nil range means no
// restriction.
func (h *Handlers) dateRange(r *http.Request) (*models.DateRange, error) {
	q := r.URL.Query()
	rng, err := period.Resolve(q.Get("filter"), q.Get("start_date"), q.Get("end_date"), h.now(), h.loc)
	switch {
	case errors.Is(err, period.ErrMissingCustomRange):
		return nil, webutil.ErrBadRequest("Start date and end date are required for custom filter.")
	case err != nil:
		return nil, webutil.ErrBadRequestWrap("Invalid date range.", err)
	}
	return rng, nil
}
