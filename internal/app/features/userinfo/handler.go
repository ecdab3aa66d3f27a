// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
)

// Handler serves the signed-in principal.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeUserInfo returns the current principal as resolved for this request.
//
// Response format:
//
//	{ "isAuthenticated": bool, "user": { "id", "name", "mobile", "role" } }
//
// The principal is reloaded from storage on every request, so the role shown
// here is current even if it changed after sign-in.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.OK(w, map[string]any{"isAuthenticated": false})
		return
	}

	jsonutil.OK(w, map[string]any{
		"isAuthenticated": true,
		"user":            user,
	})
}
