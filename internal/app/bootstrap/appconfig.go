// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level, CORS and request body limits. Everything specific to
// site tracking lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: sitetrack-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Bearer tokens for API clients that cannot hold cookies
	TokenSecret string // blank disables bearer tokens
	TokenTTL    time.Duration

	// Uploads are written to UploadDir and served under UploadURLPrefix.
	UploadDir       string
	UploadURLPrefix string

	// Shared settings cache. A blank RedisAddr keeps the cache in-process.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SettingsCacheTTL time.Duration

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth    string
	AuditLogAdmin   string
	AuditLogProject string

	// Login rate limiting per client IP and per mobile number
	LoginIPLimit      int
	LoginIPWindow     time.Duration
	LoginMobileLimit  int
	LoginMobileWindow time.Duration

	// First admin, created on startup when no admin exists yet
	BootstrapAdminMobile string
	BootstrapAdminName   string

	// Storage call deadlines
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
