// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts user management under the path where this router is
// mounted (typically "/api/admin/users" from bootstrap).
//
// Example mount from bootstrap:
//
//	h := systemusers.NewHandler(db, audit, logger)
//	r.Mount("/api/admin/users", systemusers.Routes(h, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Only signed-in admins can manage accounts.
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{id}", h.ServeView)
		pr.Put("/{id}", h.HandleEdit)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
