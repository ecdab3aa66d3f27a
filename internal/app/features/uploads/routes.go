// internal/app/features/uploads/routes.go
package uploads

import (
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves POST /api/upload for any signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleUpload)
	})

	return r
}
