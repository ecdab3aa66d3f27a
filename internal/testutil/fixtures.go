package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

var mobileSeq atomic.Int64

// NextMobile returns a mobile number not used by any earlier fixture.
func NextMobile() string {
	return fmt.Sprintf("98%08d", mobileSeq.Add(1))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given role and a fresh mobile number.
func (f *Fixtures) CreateUser(ctx context.Context, name, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Mobile:    NextMobile(),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, models.RoleAdmin)
}

// CreateManager creates a test manager.
func (f *Fixtures) CreateManager(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, models.RoleManager)
}

// CreateEngineer creates a test engineer.
func (f *Fixtures) CreateEngineer(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, models.RoleEngineer)
}

// CreateHomeowner creates a test homeowner.
func (f *Fixtures) CreateHomeowner(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, models.RoleHomeowner)
}

// ProjectSpec describes a project fixture. Each phase name becomes a pending
// phase with its own id.
type ProjectSpec struct {
	Name      string
	Status    string
	Homeowner primitive.ObjectID
	Engineers []primitive.ObjectID
	Managers  []primitive.ObjectID
	Phases    []string
}

// CreateProject inserts a project with fresh phase ids.
func (f *Fixtures) CreateProject(ctx context.Context, ps ProjectSpec) models.Project {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	status := ps.Status
	if status == "" {
		status = models.ProjectPlanning
	}
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        ps.Name,
		Description: ps.Name + " description",
		HomeownerID: ps.Homeowner,
		EngineerIDs: nonNilIDs(ps.Engineers),
		ManagerIDs:  nonNilIDs(ps.Managers),
		Status:      status,
		Timeline:    []models.Phase{},
		FloorPlans:  []models.FileUpload{},
		Images:      []models.FileUpload{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, name := range ps.Phases {
		p.Timeline = append(p.Timeline, models.Phase{
			ID:        models.NewID(),
			Name:      name,
			Status:    models.PhasePending,
			Materials: []models.Material{},
			Updates:   []models.Update{},
		})
	}

	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateLegacyProject inserts a project the way older releases stored it:
// phases carry no _id and no updates array, and there is no revision field.
func (f *Fixtures) CreateLegacyProject(ctx context.Context, ps ProjectSpec) primitive.ObjectID {
	f.t.Helper()

	now := time.Now().UTC()
	id := primitive.NewObjectID()
	timeline := bson.A{}
	for _, name := range ps.Phases {
		timeline = append(timeline, bson.M{
			"name":        name,
			"description": "",
			"status":      models.PhasePending,
			"materials":   bson.A{},
		})
	}
	doc := bson.M{
		"_id":          id,
		"name":         ps.Name,
		"description":  ps.Name + " description",
		"homeowner_id": ps.Homeowner,
		"engineer_ids": nonNilIDs(ps.Engineers),
		"manager_ids":  nonNilIDs(ps.Managers),
		"status":       models.ProjectInProgress,
		"timeline":     timeline,
		"floor_plans":  bson.A{},
		"images":       bson.A{},
		"created_at":   now,
		"updated_at":   now,
	}

	if _, err := f.db.Collection("projects").InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to create legacy project: %v", err)
	}
	return id
}

func nonNilIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
