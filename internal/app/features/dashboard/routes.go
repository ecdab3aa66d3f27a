// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the caller's dashboard (mounted at "/api/dashboard"). The
// handler dispatches on role.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
	})

	return r
}

// AdminRoutes wires the admin dashboard (mounted at "/api/admin/dashboard").
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Get("/", h.ServeAdmin)
	})

	return r
}
