// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"
	"time"

	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/sitetrack/internal/app/system/ratelimit"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	Log        *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Limiter:    limiter,
		Log:        logger,
	}
}

type loginRequest struct {
	Mobile string `json:"mobile"`
}

type loginResponse struct {
	User      *auth.SessionUser `json:"user"`
	Token     string            `json:"token,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLogin signs a user in by mobile number. The session cookie is always
// set; a bearer token is returned too when a token issuer is configured.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	mobile := normalize.Mobile(req.Mobile)
	if mobile == "" {
		jsonutil.Error(w, h.Log, apperr.ValidationDetails("mobile is required", map[string]string{
			"mobile": "mobile is required",
		}))
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, mobile); !ok {
			h.Log.Warn("login rate limited", zap.String("mobile", mobile))
			jsonutil.Fail(w, http.StatusTooManyRequests, "RATE_LIMITED", msg, nil)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login lookup")
	defer cancel()

	u, err := h.Users.GetByMobile(ctx, mobile)
	if errors.Is(err, userstore.ErrNotFound) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, mobile)
		jsonutil.Error(w, h.Log, apperr.Unauthorized("no account found for that mobile number"))
		return
	}
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	su := &auth.SessionUser{
		ID:     u.ID.Hex(),
		Name:   u.Name,
		Mobile: u.Mobile,
		Role:   normalize.Role(u.Role),
	}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		jsonutil.Error(w, h.Log, apperr.Internal("save session", err))
		return
	}

	resp := loginResponse{User: su}
	if tokens := h.SessionMgr.Tokens(); tokens != nil {
		tok, exp, err := tokens.Issue(su)
		if err != nil {
			jsonutil.Error(w, h.Log, apperr.Internal("issue token", err))
			return
		}
		resp.Token = tok
		resp.ExpiresAt = &exp
	}

	if h.Limiter != nil {
		h.Limiter.ResetMobile(mobile)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, mobile)
	h.Log.Info("user signed in", zap.String("user_id", su.ID), zap.String("role", su.Role))

	jsonutil.OK(w, resp)
}
