// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/sitetrack/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/sitetrack/internal/app/features/dashboard"
	healthfeature "github.com/dalemusser/sitetrack/internal/app/features/health"
	loginfeature "github.com/dalemusser/sitetrack/internal/app/features/login"
	logoutfeature "github.com/dalemusser/sitetrack/internal/app/features/logout"
	projectsfeature "github.com/dalemusser/sitetrack/internal/app/features/projects"
	settingsfeature "github.com/dalemusser/sitetrack/internal/app/features/settings"
	systemusersfeature "github.com/dalemusser/sitetrack/internal/app/features/systemusers"
	uploadcsvfeature "github.com/dalemusser/sitetrack/internal/app/features/uploadcsv"
	uploadsfeature "github.com/dalemusser/sitetrack/internal/app/features/uploads"
	userinfofeature "github.com/dalemusser/sitetrack/internal/app/features/userinfo"
	"github.com/dalemusser/sitetrack/internal/app/store/audit"
	settingsstore "github.com/dalemusser/sitetrack/internal/app/store/settings"
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/app/system/metrics"
	"github.com/dalemusser/sitetrack/internal/app/system/ratelimit"
	"github.com/dalemusser/sitetrack/internal/app/system/settingscache"
	"github.com/dalemusser/sitetrack/internal/app/system/upload"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// loginLimiter is stopped by Shutdown.
var loginLimiter *ratelimit.LoginLimiter

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every API route answers JSON; uploaded
// files are served as static content under the upload URL prefix.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so role changes and deletions
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	if appCfg.TokenSecret != "" {
		tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, appCfg.TokenTTL)
		if err != nil {
			logger.Error("token issuer init failed", zap.Error(err))
			return nil, err
		}
		sessionMgr.SetTokenIssuer(tokens)
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Admin:   appCfg.AuditLogAdmin,
		Project: appCfg.AuditLogProject,
	})

	var cacheBackend settingscache.Backend = settingscache.NewMemory()
	if deps.Redis != nil {
		cacheBackend = settingscache.NewRedis(deps.Redis, "")
	}
	settingsCache := settingscache.New(settingsstore.New(db).Get, cacheBackend, appCfg.SettingsCacheTTL, logger)

	disk, err := upload.NewDisk(appCfg.UploadDir)
	if err != nil {
		logger.Error("upload directory init failed", zap.String("dir", appCfg.UploadDir), zap.Error(err))
		return nil, err
	}
	uploads := upload.New(disk, appCfg.UploadURLPrefix)

	loginLimiter = ratelimit.NewLoginLimiterWithConfig(
		appCfg.LoginIPLimit, appCfg.LoginIPWindow,
		appCfg.LoginMobileLimit, appCfg.LoginMobileWindow,
	)

	r := chi.NewRouter()

	// Request metrics wrap everything, including rejected requests.
	r.Use(metrics.Middleware)

	// Global auth middleware: loads SessionUser into context from the
	// session cookie or a bearer token.
	r.Use(sessionMgr.LoadSessionUser)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Uploaded files
	r.Handle(appCfg.UploadURLPrefix+"/*", fileserver.Handler(appCfg.UploadURLPrefix, appCfg.UploadDir))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, auditLog, loginLimiter, logger)
	r.Mount("/api/auth/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger)
	r.Mount("/api/auth/logout", logoutfeature.Routes(logoutHandler))

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Site settings
	settingsHandler := settingsfeature.NewHandler(db, settingsCache, auditLog, logger)
	settingsHandler.MountRoutes(r)
	r.Mount("/api/admin/settings", settingsfeature.AdminRoutes(settingsHandler, sessionMgr))

	// Projects
	projectsHandler := projectsfeature.NewHandler(db, auditLog, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler, sessionMgr))
	r.Mount("/api/admin/projects", projectsfeature.AdminRoutes(projectsHandler, sessionMgr))

	// Dashboards
	dashboardHandler := dashboardfeature.NewHandler(db, logger)
	r.Mount("/api/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	r.Mount("/api/admin/dashboard", dashboardfeature.AdminRoutes(dashboardHandler, sessionMgr))

	// User management
	sysUsersHandler := systemusersfeature.NewHandler(db, auditLog, logger)
	r.Mount("/api/admin/users", systemusersfeature.Routes(sysUsersHandler, sessionMgr))
	r.Mount("/api/admin/import/users", uploadcsvfeature.Routes(uploadcsvfeature.NewHandler(db, auditLog, logger), sessionMgr))

	// Audit trail
	auditHandler := auditlogfeature.NewHandler(db, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	// Uploads
	uploadsHandler := uploadsfeature.NewHandler(uploads, logger)
	r.Mount("/api/upload", uploadsfeature.Routes(uploadsHandler, sessionMgr))

	return r, nil
}
