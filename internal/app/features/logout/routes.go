// internal/app/features/logout/routes.go
package logout

import "github.com/go-chi/chi/v5"

// Routes is open to anonymous callers so a client holding a stale cookie can
// always clear it.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeLogout)
	return r
}
