// internal/app/features/uploadcsv/routes.go
package uploadcsv

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the CSV import under the path where the caller mounts it.
// Typically: r.Mount("/api/admin/import/users", uploadcsv.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Post("/", h.HandleImport)
	})

	return r
}
