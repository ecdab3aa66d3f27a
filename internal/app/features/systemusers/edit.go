// internal/app/features/systemusers/edit.go
package systemusers

import (
	"net/http"
	"strings"

	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.uber.org/zap"
)

type editRequest struct {
	Name   *string `json:"name"`
	Mobile *string `json:"mobile"`
	Role   *string `json:"role"`
}

func (req editRequest) fieldNames() string {
	var out []string
	if req.Name != nil {
		out = append(out, "name")
	}
	if req.Mobile != nil {
		out = append(out, "mobile")
	}
	if req.Role != nil {
		out = append(out, "role")
	}
	return strings.Join(out, ",")
}

// HandleEdit changes the fields present in the body. An admin cannot change
// their own role.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	id, err := userID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	var req editRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	if actor == id && req.Role != nil && normalize.Role(*req.Role) != models.RoleAdmin {
		jsonutil.Error(w, h.Log, apperr.Forbidden("you can't change your own role; ask another admin"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update user")
	defer cancel()

	u, err := h.Users.Update(ctx, id, userstore.Patch{Name: req.Name, Mobile: req.Mobile, Role: req.Role})
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	h.AuditLog.UserUpdated(ctx, r, actor, u.ID, req.fieldNames())
	jsonutil.OK(w, map[string]any{"user": u})
}

// HandleDelete removes an account. Admins cannot delete themselves, and the
// last admin cannot be deleted.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	id, err := userID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	if actor == id {
		jsonutil.Error(w, h.Log, apperr.Validation("you cannot delete your own account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete user")
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	h.AuditLog.UserDeleted(ctx, r, actor, id, target.Role)
	h.Log.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.String("actor_id", actor.Hex()))

	jsonutil.OK(w, map[string]bool{"ok": true})
}
