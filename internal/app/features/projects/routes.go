// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/projects. Per-project access is decided in the
// handlers, since it depends on the project's assignments.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeProject)
		pr.Get("/{id}/updates", h.ServeUpdates)
		pr.Post("/{id}/updates", h.HandlePostUpdate)
		pr.Delete("/{id}/updates", h.HandleDeleteUpdate)
		pr.Post("/{id}/materials", h.HandleReplaceMaterials)
		pr.Put("/{id}/phases/{phaseId}/status", h.HandlePhaseStatus)
	})

	return r
}

// AdminRoutes serves /api/admin/projects.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin, models.RoleEngineer, models.RoleManager))
		pr.Get("/{id}", h.ServeAdminProject)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Get("/", h.ServeAdminList)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
	})

	return r
}
