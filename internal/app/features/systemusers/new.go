// internal/app/features/systemusers/new.go
package systemusers

import (
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
}

// HandleCreate adds an account. The mobile number must be unused.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create user")
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{Name: req.Name, Mobile: req.Mobile, Role: req.Role})
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	h.AuditLog.UserCreated(ctx, r, actor, u.ID, u.Role)
	h.Log.Info("user created",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("actor_id", actor.Hex()))

	jsonutil.Created(w, map[string]any{"user": u})
}
