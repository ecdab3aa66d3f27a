package settingsstore_test

import (
	"testing"

	settingsstore "github.com/dalemusser/sitetrack/internal/app/store/settings"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/sitetrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Get_NoSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	settings, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if settings.AppName != models.DefaultAppName {
		t.Errorf("AppName: got %q, want default %q", settings.AppName, models.DefaultAppName)
	}
	if settings.PrimaryColor != models.DefaultPrimaryColor {
		t.Errorf("PrimaryColor: got %q, want default %q", settings.PrimaryColor, models.DefaultPrimaryColor)
	}

	exists, err := store.Exists(ctx)
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false", exists, err)
	}
}

func TestStore_Save(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := settingsstore.Actor{ID: primitive.NewObjectID(), Name: "Admin"}
	saved, err := store.Save(ctx, models.SiteSettings{
		AppName:     "  BuildTrack ",
		CompanyName: "Acme Builders",
	}, admin)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.AppName != "BuildTrack" || saved.CompanyName != "Acme Builders" {
		t.Errorf("unexpected settings %+v", saved)
	}
	if saved.PrimaryColor != models.DefaultPrimaryColor {
		t.Errorf("PrimaryColor should default, got %q", saved.PrimaryColor)
	}
	if saved.CreatedAt == nil || saved.UpdatedAt == nil {
		t.Error("expected timestamps")
	}
	if saved.UpdatedByID == nil || *saved.UpdatedByID != admin.ID || saved.UpdatedByName != "Admin" {
		t.Error("expected updated-by fields")
	}

	// A second save updates the same document.
	again, err := store.Save(ctx, models.SiteSettings{AppName: "BuildTrack 2", PrimaryColor: "#000000"}, admin)
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if again.ID != saved.ID {
		t.Error("expected a single settings document")
	}
	if !again.CreatedAt.Equal(*saved.CreatedAt) {
		t.Error("created_at must not change on update")
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.AppName != "BuildTrack 2" || got.PrimaryColor != "#000000" || got.CompanyName != "" {
		t.Errorf("unexpected stored settings %+v", got)
	}

	n, _ := db.Collection("settings").CountDocuments(ctx, map[string]any{})
	if n != 1 {
		t.Errorf("expected 1 settings document, got %d", n)
	}
}

func TestStore_Save_RequiresAppName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Save(ctx, models.SiteSettings{AppName: "   "}, settingsstore.Actor{})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}
