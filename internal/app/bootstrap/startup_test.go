package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/sitetrack/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig(t *testing.T) AppConfig {
	t.Helper()
	return AppConfig{
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "sitetrack_test",
		SessionKey:        "test-session-key-for-testing-only-32",
		SessionName:       "sitetrack-test",
		SessionMaxAge:     time.Hour,
		TokenSecret:       "test-token-secret-for-testing-only-32",
		TokenTTL:          time.Hour,
		UploadDir:         t.TempDir(),
		UploadURLPrefix:   "/uploads",
		SettingsCacheTTL:  time.Minute,
		AuditLogAuth:      "all",
		AuditLogAdmin:     "all",
		AuditLogProject:   "all",
		LoginIPLimit:      20,
		LoginIPWindow:     time.Minute,
		LoginMobileLimit:  5,
		LoginMobileWindow: time.Minute,
	}
}

func TestEnsureAdmin_CreatesWhenNoneExist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "9876543210", "Site Admin", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := userstore.New(db).GetByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("bootstrap admin not found: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("role: got %q, want %q", u.Role, models.RoleAdmin)
	}
	if u.Name != "Site Admin" {
		t.Errorf("name: got %q, want %q", u.Name, "Site Admin")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	eng := testutil.NewFixtures(t, db).CreateEngineer(ctx, "Esha Engineer")

	if err := ensureAdmin(ctx, DBDeps{MongoDatabase: db}, eng.Mobile, "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := userstore.New(db).GetByID(ctx, eng.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("role: got %q, want %q", u.Role, models.RoleAdmin)
	}
	if u.Name != "Esha Engineer" {
		t.Errorf("name changed to %q", u.Name)
	}
}

func TestEnsureAdmin_NoOpWhenAdminExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, db).CreateAdmin(ctx, "Asha Admin")

	if err := ensureAdmin(ctx, DBDeps{MongoDatabase: db}, "9876543210", "Second Admin", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	n, err := userstore.New(db).Count(ctx, "")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestEnsureAdmin_BlankMobileSkips(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureAdmin(ctx, DBDeps{MongoDatabase: db}, "", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	n, err := userstore.New(db).Count(ctx, "")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no users, got %d", n)
	}
}

func TestStartup_BackfillsPhaseIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	t.Cleanup(timeouts.Reset)

	id := testutil.NewFixtures(t, db).CreateLegacyProject(ctx, testutil.ProjectSpec{
		Name:   "Old Farmhouse",
		Phases: []string{"Foundation", "Roofing"},
	})

	appCfg := testAppConfig(t)
	appCfg.TimeoutShort = 3 * time.Second
	if err := Startup(ctx, &config.CoreConfig{}, appCfg, DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}

	if got := timeouts.Short(); got != 3*time.Second {
		t.Errorf("timeouts.Short: got %v, want 3s", got)
	}
	if got := timeouts.Long(); got != timeouts.DefaultLong {
		t.Errorf("timeouts.Long: got %v, want default", got)
	}

	p, err := projectstore.New(db).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	for _, ph := range p.Timeline {
		if ph.ID == "" {
			t.Errorf("phase %q still has no id", ph.Name)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "dev", func(*AppConfig) {}, false},
		{"bad mongo uri", "dev", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"unknown audit mode", "dev", func(c *AppConfig) { c.AuditLogProject = "both" }, true},
		{"short token secret in prod", "prod", func(c *AppConfig) { c.TokenSecret = "short" }, true},
		{"short token secret in dev", "dev", func(c *AppConfig) { c.TokenSecret = "short" }, false},
		{"tokens disabled in prod", "prod", func(c *AppConfig) { c.TokenSecret = "" }, false},
		{"no upload dir", "dev", func(c *AppConfig) { c.UploadDir = "" }, true},
		{"zero login limit", "dev", func(c *AppConfig) { c.LoginMobileLimit = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig(t)
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildHandler_Wiring(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	eng := fx.CreateEngineer(ctx, "Esha Engineer")
	fx.CreateProject(ctx, testutil.ProjectSpec{
		Name:      "Lake House",
		Engineers: []primitive.ObjectID{eng.ID},
		Phases:    []string{"Foundation"},
	})

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, testAppConfig(t), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	t.Cleanup(func() { _ = Shutdown(ctx, &config.CoreConfig{}, AppConfig{}, DBDeps{}, testLogger()) })

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/settings", http.StatusOK},
		{"GET", "/api/auth/me", http.StatusOK},
		{"GET", "/api/projects", http.StatusUnauthorized},
		{"GET", "/api/dashboard", http.StatusUnauthorized},
		{"GET", "/api/admin/users", http.StatusUnauthorized},
		{"GET", "/api/admin/audit", http.StatusUnauthorized},
		{"POST", "/api/upload", http.StatusUnauthorized},
		{"POST", "/api/admin/import/users", http.StatusUnauthorized},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s %s: got %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}

	// Sign in and use the bearer token against a scoped endpoint.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"mobile":"`+eng.Mobile+`"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login response has no token: %v %s", err, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("projects: got %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Lake House") {
		t.Errorf("expected assigned project in %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin users as engineer: got %d, want %d", rec.Code, http.StatusForbidden)
	}
}
