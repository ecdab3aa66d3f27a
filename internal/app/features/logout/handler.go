// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles POST /api/auth/logout. The cookie is expired even when
// the session could not be decoded; bearer tokens simply lapse.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	var userID string
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: clear session", zap.Error(err))
	}

	h.AuditLog.Logout(r.Context(), r, userID)
	jsonutil.OK(w, map[string]bool{"ok": true})
}
