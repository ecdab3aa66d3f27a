package dashboard_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/features/dashboard"
	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	"github.com/dalemusser/sitetrack/internal/app/system/auth"
	"github.com/dalemusser/sitetrack/internal/app/system/progress"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/sitetrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type site struct {
	h        *dashboard.Handler
	admin    models.User
	owner    models.User
	engineer models.User
	lake     models.Project
	barn     models.Project
}

type adminBody struct {
	TotalProjects     int64               `json:"totalProjects"`
	ActiveProjects    int64               `json:"activeProjects"`
	CompletedProjects int64               `json:"completedProjects"`
	TotalUsers        int64               `json:"totalUsers"`
	Recent            []progress.Activity `json:"recent"`
}

type projectsBody struct {
	Role     string                    `json:"role"`
	Totals   progress.Totals           `json:"totals"`
	Projects []progress.ProjectSummary `json:"projects"`
	Recent   []progress.Activity       `json:"recent"`
}

// newSite builds two projects. The engineer is assigned to "Lake House"
// only. Each project gets six updates, interleaved a minute apart.
func newSite(t *testing.T) (*site, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	fx := testutil.NewFixtures(t, db)
	s := &site{
		h:        dashboard.NewHandler(db, zap.NewNop()),
		admin:    fx.CreateAdmin(ctx, "Asha Admin"),
		owner:    fx.CreateHomeowner(ctx, "Omar Owner"),
		engineer: fx.CreateEngineer(ctx, "Esi Engineer"),
	}
	s.lake = fx.CreateProject(ctx, testutil.ProjectSpec{
		Name:      "Lake House",
		Status:    models.ProjectInProgress,
		Homeowner: s.owner.ID,
		Engineers: []primitive.ObjectID{s.engineer.ID},
		Phases:    []string{"Foundation", "Framing"},
	})
	s.barn = fx.CreateProject(ctx, testutil.ProjectSpec{
		Name:      "Barn",
		Status:    models.ProjectCompleted,
		Homeowner: fx.CreateHomeowner(ctx, "Nia Neighbour").ID,
		Phases:    []string{"Site"},
	})

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := s.h.Projects
	for i := 0; i < 6; i++ {
		_, err := store.AddUpdate(ctx, s.lake.ID, projectstore.PhaseRef{ID: s.lake.Timeline[0].ID}, models.Update{
			UserID:    s.engineer.ID,
			UserName:  s.engineer.Name,
			Message:   fmt.Sprintf("lake %d", i),
			CreatedAt: base.Add(time.Duration(2*i) * time.Minute),
		})
		require.NoError(t, err)
		_, err = store.AddUpdate(ctx, s.barn.ID, projectstore.PhaseRef{ID: s.barn.Timeline[0].ID}, models.Update{
			UserID:    s.admin.ID,
			UserName:  s.admin.Name,
			Message:   fmt.Sprintf("barn %d", i),
			CreatedAt: base.Add(time.Duration(2*i+1) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, store.SetPhaseStatus(ctx, s.lake.ID, projectstore.PhaseRef{ID: s.lake.Timeline[0].ID}, models.PhaseCompleted))
	return s, ctx
}

func TestServeAdmin(t *testing.T) {
	s, _ := newSite(t)

	rec := testutil.NewRecorder()
	s.h.ServeAdmin(rec, testutil.NewAuthenticatedRequest("GET", "/api/admin/dashboard", testutil.AsTestUser(s.admin)))
	rec.AssertStatus(t, http.StatusOK)

	var body adminBody
	rec.DecodeJSON(t, &body)
	assert.EqualValues(t, 2, body.TotalProjects)
	assert.EqualValues(t, 1, body.ActiveProjects)
	assert.EqualValues(t, 1, body.CompletedProjects)
	assert.EqualValues(t, 4, body.TotalUsers)

	require.Len(t, body.Recent, progress.AdminRecentLimit)
	want := []string{"barn 5", "lake 5", "barn 4", "lake 4", "barn 3"}
	for i, a := range body.Recent {
		assert.Equal(t, want[i], a.Message)
	}
	assert.Equal(t, "Barn", body.Recent[0].ProjectName)
	assert.Equal(t, "Site", body.Recent[0].PhaseName)
}

func TestServeDashboard_EngineerSeesAssignedOnly(t *testing.T) {
	s, _ := newSite(t)

	rec := testutil.NewRecorder()
	s.h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(s.engineer)))
	rec.AssertStatus(t, http.StatusOK)

	var body projectsBody
	rec.DecodeJSON(t, &body)
	assert.Equal(t, models.RoleEngineer, body.Role)
	assert.Equal(t, 1, body.Totals.Total)
	assert.Equal(t, 1, body.Totals.Active)

	require.Len(t, body.Projects, 1)
	card := body.Projects[0]
	assert.Equal(t, s.lake.ID, card.ID)
	assert.Equal(t, 50, card.CompletionPercent)
	require.NotNil(t, card.NextMilestone)
	assert.Equal(t, "Framing", card.NextMilestone.Name)

	require.Len(t, body.Recent, 6)
	assert.Equal(t, "lake 5", body.Recent[0].Message)
	for _, a := range body.Recent {
		assert.Equal(t, s.lake.ID, a.ProjectID)
	}
}

func TestServeDashboard_AdminGetsCounts(t *testing.T) {
	s, _ := newSite(t)

	rec := testutil.NewRecorder()
	s.h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(s.admin)))
	rec.AssertStatus(t, http.StatusOK)

	var body adminBody
	rec.DecodeJSON(t, &body)
	assert.EqualValues(t, 2, body.TotalProjects)
	assert.Len(t, body.Recent, progress.AdminRecentLimit)
}

func TestServeDashboard_RecentCappedForStaff(t *testing.T) {
	s, ctx := newSite(t)
	ph := projectstore.PhaseRef{ID: s.lake.Timeline[1].ID}
	for i := 0; i < 4; i++ {
		_, err := s.h.Projects.AddUpdate(ctx, s.lake.ID, ph, models.Update{
			UserID:   s.engineer.ID,
			UserName: s.engineer.Name,
			Message:  fmt.Sprintf("framing %d", i),
		})
		require.NoError(t, err)
	}

	rec := testutil.NewRecorder()
	s.h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(s.owner)))
	rec.AssertStatus(t, http.StatusOK)

	var body projectsBody
	rec.DecodeJSON(t, &body)
	assert.Len(t, body.Recent, progress.ProjectRecentLimit)
}

func TestServeDashboard_Unauthenticated(t *testing.T) {
	s, _ := newSite(t)

	rec := testutil.NewRecorder()
	s.h.ServeDashboard(rec, testutil.NewRequest("GET", "/api/dashboard"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestRoutes(t *testing.T) {
	s, _ := newSite(t)
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-32", "test-session", "", 0, false, zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name   string
		router http.Handler
		req    *http.Request
		status int
	}{
		{"anonymous dashboard", dashboard.Routes(s.h, sm), testutil.NewRequest("GET", "/"), http.StatusUnauthorized},
		{"owner dashboard", dashboard.Routes(s.h, sm), testutil.NewAuthenticatedRequest("GET", "/", testutil.AsTestUser(s.owner)), http.StatusOK},
		{"engineer admin dashboard", dashboard.AdminRoutes(s.h, sm), testutil.NewAuthenticatedRequest("GET", "/", testutil.AsTestUser(s.engineer)), http.StatusForbidden},
		{"admin dashboard", dashboard.AdminRoutes(s.h, sm), testutil.NewAuthenticatedRequest("GET", "/", testutil.AsTestUser(s.admin)), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			tt.router.ServeHTTP(rec, tt.req)
			rec.AssertStatus(t, tt.status)
		})
	}
}
