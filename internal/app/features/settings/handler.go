// internal/app/features/settings/handler.go
package settings

import (
	"net/http"

	settingsstore "github.com/dalemusser/sitetrack/internal/app/store/settings"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/settingscache"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the public and admin settings endpoints.
type Handler struct {
	Store    *settingsstore.Store
	Cache    *settingscache.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a Handler bound to the given Mongo database,
// settings cache and logger.
func NewHandler(db *mongo.Database, cache *settingscache.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    settingsstore.New(db),
		Cache:    cache,
		AuditLog: audit,
		Log:      logger,
	}
}

// ServePublic returns the cached settings. Anyone may read them; the login
// page needs the branding before a session exists.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get settings")
	defer cancel()

	s, err := h.Cache.Get(ctx)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, s)
}

// ServeSettings returns the stored settings, bypassing the cache.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get settings")
	defer cancel()

	s, err := h.Store.Get(ctx)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, s)
}

type settingsRequest struct {
	AppName      string `json:"appName"`
	CompanyName  string `json:"companyName"`
	Logo         string `json:"logo"`
	PrimaryColor string `json:"primaryColor"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	Address      string `json:"address"`
}

// HandleSettings saves the settings and drops the cached copy.
func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	_, name, userID, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req settingsRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "save settings")
	defer cancel()

	saved, err := h.Store.Save(ctx, models.SiteSettings{
		AppName:      htmlsanitize.PlainText(req.AppName),
		CompanyName:  htmlsanitize.PlainText(req.CompanyName),
		Logo:         req.Logo,
		PrimaryColor: req.PrimaryColor,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      htmlsanitize.PlainText(req.Address),
	}, settingsstore.Actor{ID: userID, Name: name})
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	h.Cache.Invalidate(ctx)

	h.AuditLog.SettingsUpdated(ctx, r, userID, saved.AppName)
	h.Log.Info("settings saved", zap.String("actor_id", userID.Hex()))

	jsonutil.OK(w, saved)
}
