// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minTokenSecret is the shortest bearer-token secret accepted in prod.
const minTokenSecret = 32

// appConfigKeys defines the configuration keys for SiteTrack.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SITETRACK_MONGO_URI, SITETRACK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "sitetrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "sitetrack-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime (e.g., 24h, 168h)"},

	// Bearer tokens
	{Name: "token_secret", Default: "", Desc: "HMAC secret for bearer tokens (blank disables tokens)"},
	{Name: "token_ttl", Default: "168h", Desc: "Bearer token lifetime"},

	// Uploads
	{Name: "upload_dir", Default: "./uploads", Desc: "Directory uploaded files are written to"},
	{Name: "upload_url_prefix", Default: "/uploads", Desc: "URL prefix uploaded files are served under"},

	// Settings cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the shared settings cache (blank keeps it in-process)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "settings_cache_ttl", Default: "5m", Desc: "How long cached site settings stay fresh"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_project", Default: "all", Desc: "Project activity logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Login rate limiting
	{Name: "login_ip_limit", Default: 20, Desc: "Login attempts allowed per client IP per window"},
	{Name: "login_ip_window", Default: "15m", Desc: "Window for the per-IP login limit"},
	{Name: "login_mobile_limit", Default: 5, Desc: "Login attempts allowed per mobile number per window"},
	{Name: "login_mobile_window", Default: "15m", Desc: "Window for the per-mobile login limit"},

	// Admin bootstrap
	{Name: "bootstrap_admin_mobile", Default: "", Desc: "Mobile of the admin created on startup when none exists"},
	{Name: "bootstrap_admin_name", Default: "Administrator", Desc: "Name of the bootstrap admin"},

	// Storage timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads and targeted writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and dashboards"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for whole-project rewrites and uploads"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SITETRACK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SITETRACK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 7*24*time.Hour),

		// Bearer tokens
		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", 7*24*time.Hour),

		// Uploads
		UploadDir:       appValues.String("upload_dir"),
		UploadURLPrefix: appValues.String("upload_url_prefix"),

		// Settings cache
		RedisAddr:        appValues.String("redis_addr"),
		RedisPassword:    appValues.String("redis_password"),
		RedisDB:          appValues.Int("redis_db"),
		SettingsCacheTTL: appValues.Duration("settings_cache_ttl", 5*time.Minute),

		// Audit logging
		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAdmin:   appValues.String("audit_log_admin"),
		AuditLogProject: appValues.String("audit_log_project"),

		// Login rate limiting
		LoginIPLimit:      appValues.Int("login_ip_limit"),
		LoginIPWindow:     appValues.Duration("login_ip_window", 15*time.Minute),
		LoginMobileLimit:  appValues.Int("login_mobile_limit"),
		LoginMobileWindow: appValues.Duration("login_mobile_window", 15*time.Minute),

		// Admin bootstrap
		BootstrapAdminMobile: normalize.Mobile(appValues.String("bootstrap_admin_mobile")),
		BootstrapAdminName:   normalize.Name(appValues.String("bootstrap_admin_name")),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before any connection is attempted, audit
// modes must be recognised, and production requires a strong token secret
// whenever bearer tokens are enabled.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	for name, mode := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_admin":   appCfg.AuditLogAdmin,
		"audit_log_project": appCfg.AuditLogProject,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s: unknown mode %q (want all, db, log or off)", name, mode)
		}
	}

	if appCfg.TokenSecret != "" && coreCfg.Env == "prod" && len(appCfg.TokenSecret) < minTokenSecret {
		return fmt.Errorf("token_secret must be at least %d characters in prod", minTokenSecret)
	}

	if appCfg.UploadDir == "" {
		return fmt.Errorf("upload_dir must be set")
	}

	if appCfg.LoginIPLimit <= 0 || appCfg.LoginMobileLimit <= 0 {
		return fmt.Errorf("login_ip_limit and login_mobile_limit must be positive")
	}

	return nil
}
