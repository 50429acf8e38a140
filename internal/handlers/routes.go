package handlers

import (
	"net/http"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/webutil"

	"github.com/go-chi/chi/v5"
)

// Routes mounts every API endpoint on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Method(http.MethodGet, "/healthz", webutil.MakeHandler(h.Healthz))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", webutil.MakeHandler(h.Login))
		r.Post("/register", webutil.MakeHandler(h.Register))

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Post("/logout", webutil.MakeHandler(h.Logout))
			r.Get("/profile", webutil.MakeHandler(h.Profile))
			r.Put("/profile/{id}", webutil.MakeHandler(h.UpdateProfile))
			r.Delete("/profile/{id}", webutil.MakeHandler(h.DeleteProfile))
		})
	})

	r.Route("/expense", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/", webutil.MakeHandler(h.ListExpenses))
		r.Post("/", webutil.MakeHandler(h.CreateExpense))
		r.Get("/summary", webutil.MakeHandler(h.Statistics))
		r.Get("/{id}", webutil.MakeHandler(h.ShowExpense))
		r.Put("/{id}", webutil.MakeHandler(h.UpdateExpense))
		r.Delete("/{id}", webutil.MakeHandler(h.DeleteExpense))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware, h.RequireRole(models.RoleAdmin))

		r.Route("/category", func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(h.ListCategories))
			r.Post("/", webutil.MakeHandler(h.CreateCategory))
			r.Get("/{id}", webutil.MakeHandler(h.ShowCategory))
			r.Put("/{id}", webutil.MakeHandler(h.UpdateCategory))
			r.Delete("/{id}", webutil.MakeHandler(h.DeleteCategory))
		})

		r.Route("/role", func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(h.ListRoles))
			r.Post("/", webutil.MakeHandler(h.CreateRole))
			r.Get("/{id}", webutil.MakeHandler(h.ShowRole))
			r.Put("/{id}", webutil.MakeHandler(h.UpdateRole))
			r.Delete("/{id}", webutil.MakeHandler(h.DeleteRole))
		})
	})
}
