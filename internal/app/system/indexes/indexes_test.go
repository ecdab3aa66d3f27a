package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/sitetrack/internal/app/system/indexes"
	"github.com/dalemusser/sitetrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users": {"uniq_users_mobile", "idx_users_role_nameci__id"},
		"projects": {
			"idx_projects_homeowner_updated",
			"idx_projects_engineers_updated",
			"idx_projects_managers_updated",
			"idx_projects_timeline_id",
			"idx_projects_status",
			"idx_projects_updated__id",
		},
		"audit_events": {
			"idx_audit_ts",
			"idx_audit_user_ts",
			"idx_audit_project_ts",
			"idx_audit_category_type_ts",
		},
	}

	for coll, want := range expected {
		names := indexNames(t, ctx, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys as uniq_users_mobile under a different name.
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mobile", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("mobile_1_old"),
	})
	if err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, ctx, db, "users")
	if names["mobile_1_old"] {
		t.Error("legacy index should have been dropped")
	}
	if !names["uniq_users_mobile"] {
		t.Error("expected uniq_users_mobile to exist")
	}
}

func TestEnsureAll_UniqueMobileEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	users := db.Collection("users")
	if _, err := users.InsertOne(ctx, bson.M{"name": "A", "mobile": "9000000001", "role": "admin"}); err != nil {
		t.Fatalf("insert user failed: %v", err)
	}
	if _, err := users.InsertOne(ctx, bson.M{"name": "B", "mobile": "9000000001", "role": "engineer"}); err == nil {
		t.Error("expected duplicate key error for unique index on users.mobile")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	for _, name := range []string{"A", "B"} {
		if _, err := users.InsertOne(ctx, bson.M{"name": name, "mobile": "9000000002", "role": "engineer"}); err != nil {
			t.Fatalf("insert user failed: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Error("expected EnsureAll to fail when duplicate mobiles exist")
	}
}
