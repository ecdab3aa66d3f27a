// internal/app/features/systemusers/list.go
package systemusers

import (
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/sitetrack/internal/app/system/paging"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList returns one page of users sorted by name. ?role= narrows the
// list; ?after=, ?before= and ?limit= page through it.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role := normalize.Role(query.Get(r, "role"))
	if role != "" && !models.IsValidRole(role) {
		jsonutil.Error(w, h.Log, apperr.ValidationDetails("invalid role filter", map[string]string{
			"role": "role must be admin, manager, engineer or homeowner",
		}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	users, page, err := h.Users.ListPage(ctx, role, paging.FromRequest(r))
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	total, err := h.Users.Count(ctx, role)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	jsonutil.OK(w, map[string]any{
		"users": users,
		"page":  page,
		"total": total,
	})
}

// ServeView returns one user.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"user": u})
}
