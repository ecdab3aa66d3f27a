package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/sitetrack/internal/app/store/audit"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	// All of these must be no-ops.
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "9000000000")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
	logger.PhaseStatusChanged(ctx, req, primitive.NewObjectID(), primitive.NewObjectID(), "engineer", "Foundation", "completed")
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "off", Project: "off"})

	for _, cat := range []string{audit.CategoryAuth, audit.CategoryAdmin, audit.CategoryProject} {
		logger.Log(ctx, audit.Event{Category: cat, EventType: "x", Success: true})
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no events when config is 'off', got %d", n)
	}
}

func TestLogger_Log_Routing(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int64
		wantZap int
	}{
		{"all", 1, 1},
		{"db", 1, 0},
		{"log", 0, 1},
		{"off", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			core, logs := observer.New(zapcore.InfoLevel)
			logger := auditlog.New(store, zap.New(core), auditlog.Config{Project: tt.setting})

			logger.Log(ctx, audit.Event{
				Category:  audit.CategoryProject,
				EventType: audit.EventUpdatePosted,
				Success:   true,
			})

			n, err := store.CountByFilter(ctx, audit.QueryFilter{})
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if n != tt.wantDB {
				t.Errorf("stored %d events, want %d", n, tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len(); got != tt.wantZap {
				t.Errorf("zap entries = %d, want %d", got, tt.wantZap)
			}
		})
	}
}

func TestLogger_FailureLogsAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.9")
	logger.LoginFailedUserNotFound(ctx, req, "9000000000")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["ip"] != "10.0.0.9" {
		t.Errorf("ip = %v", fields["ip"])
	}
	if fields["detail_attempted_mobile"] != "9000000000" {
		t.Errorf("attempted mobile = %v", fields["detail_attempted_mobile"])
	}
}

func TestLogger_LoginSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})
	userID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.Header.Set("User-Agent", "TestBrowser/1.0")

	logger.LoginSuccess(ctx, req, userID, "9000000001")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventLoginSuccess || !e.Success {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Details["mobile"] != "9000000001" || e.UserAgent != "TestBrowser/1.0" {
		t.Errorf("details not recorded: %+v", e)
	}
}

func TestLogger_Logout_InvalidUserID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})
	logger.Logout(ctx, httptest.NewRequest("POST", "/api/auth/logout", nil), "not-an-id")

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != nil {
		t.Errorf("expected no user id, got %v", events[0].UserID)
	}
}

func TestLogger_AdminEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Admin: "db"})
	req := httptest.NewRequest("POST", "/api/admin", nil)
	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	project := primitive.NewObjectID()

	logger.UserCreated(ctx, req, actor, target, "engineer")
	logger.UserUpdated(ctx, req, actor, target, "name,role")
	logger.UserDeleted(ctx, req, actor, target, "engineer")
	logger.ProjectCreated(ctx, req, actor, project, "Lake House", 3)
	logger.ProjectUpdated(ctx, req, actor, project, "status")
	logger.SettingsUpdated(ctx, req, actor, "SiteTrack")

	byActor, err := store.Query(ctx, audit.QueryFilter{ActorID: &actor, Category: audit.CategoryAdmin})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byActor) != 6 {
		t.Errorf("expected 6 admin events, got %d", len(byActor))
	}

	byProject, err := store.GetByProject(ctx, project, 10)
	if err != nil {
		t.Fatalf("GetByProject failed: %v", err)
	}
	if len(byProject) != 2 {
		t.Fatalf("expected 2 project events, got %d", len(byProject))
	}
	for _, e := range byProject {
		if e.EventType == audit.EventProjectCreated && e.Details["phases"] != "3" {
			t.Errorf("phases detail = %q", e.Details["phases"])
		}
	}
}

func TestLogger_ProjectActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Project: "db"})
	req := httptest.NewRequest("POST", "/api/projects/x", nil)
	actor := primitive.NewObjectID()
	project := primitive.NewObjectID()

	logger.UpdatePosted(ctx, req, actor, project, "engineer", "Foundation", "u1")
	logger.UpdateDeleted(ctx, req, actor, project, "engineer", "Foundation", "u1")
	logger.MaterialsReplaced(ctx, req, actor, project, "manager", "Framing", 4)
	logger.PhaseStatusChanged(ctx, req, actor, project, "engineer", "Framing", "in_progress")

	events, err := store.Query(ctx, audit.QueryFilter{ProjectID: &project, Category: audit.CategoryProject})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	byType := map[string]audit.Event{}
	for _, e := range events {
		byType[e.EventType] = e
	}
	if e := byType[audit.EventMaterialsReplaced]; e.Details["count"] != "4" || e.Details["actor_role"] != "manager" {
		t.Errorf("materials event details = %v", e.Details)
	}
	if e := byType[audit.EventPhaseStatusChanged]; e.Details["status"] != "in_progress" || e.Details["phase"] != "Framing" {
		t.Errorf("status event details = %v", e.Details)
	}
	if e := byType[audit.EventUpdatePosted]; e.Details["update_id"] != "u1" {
		t.Errorf("update event details = %v", e.Details)
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(mode) {
			t.Errorf("ValidMode(%q) = false, want true", mode)
		}
	}
	for _, mode := range []string{"", "ALL", "both"} {
		if auditlog.ValidMode(mode) {
			t.Errorf("ValidMode(%q) = true, want false", mode)
		}
	}
}
