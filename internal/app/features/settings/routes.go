// internal/app/features/settings/routes.go
package settings

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the public read at GET /api/settings.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/settings", h.ServePublic)
}

// AdminRoutes serves /api/admin/settings. All routes require an admin.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Get("/", h.ServeSettings)
		pr.Put("/", h.HandleSettings)
	})

	return r
}
