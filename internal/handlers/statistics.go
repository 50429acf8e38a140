package handlers

import (
	"math"
	"net/http"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"
)

// StatsCategoryItem represents a category with its spending statistics.
type StatsCategoryItem struct {
	Category   string       `json:"category"`
	Total      models.Money `json:"total"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

// StatsSummary is the payload of GET /expense/summary.
type StatsSummary struct {
	Total      models.Money        `json:"total"`
	Count      int                 `json:"count"`
	From       any                 `json:"from"`
	To         any                 `json:"to"`
	Categories []StatsCategoryItem `json:"categories"`
}

// Statistics returns the caller's spending per category for the same
// filters ListExpenses accepts, largest category first.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) error {
	id, err := identity(r)
	if err != nil {
		return err
	}
	rng, err := h.dateRange(r)
	if err != nil {
		return err
	}

	categoryTotals, err := h.db.CategoryTotals(r.Context(), id.UserID, rng)
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to retrieve summary.", err)
	}

	summary := StatsSummary{Categories: make([]StatsCategoryItem, 0, len(categoryTotals))}
	if rng != nil {
		summary.From, summary.To = rng.Start, rng.End
	}
	for _, ct := range categoryTotals {
		summary.Total += ct.Total
		summary.Count += ct.Count
	}

	for _, ct := range categoryTotals {
		percentage := 0.0
		if summary.Total > 0 {
			percentage = math.Round(float64(ct.Total)/float64(summary.Total)*10000) / 100
		}
		summary.Categories = append(summary.Categories, StatsCategoryItem{
			Category:   ct.Category,
			Total:      ct.Total,
			Count:      ct.Count,
			Percentage: percentage,
		})
	}

	webutil.RespondWithJSON(w, http.StatusOK, webutil.OK("Summary retrieved successfully.", "summary", summary))
	return nil
}
