package metricsstore

import (
	"context"

	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the admin dashboard.
type Counts struct {
	TotalProjects     int64 `json:"totalProjects"`
	ActiveProjects    int64 `json:"activeProjects"`
	CompletedProjects int64 `json:"completedProjects"`
	TotalUsers        int64 `json:"totalUsers"`
}

// FetchDashboardCounts returns the high-level counts used by the admin
// dashboard. Intentionally tolerant: on error it returns 0 for that counter.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	projects := db.Collection("projects")

	if n, err := projects.CountDocuments(ctx, bson.M{}); err == nil {
		out.TotalProjects = n
	}
	if n, err := projects.CountDocuments(ctx, bson.M{"status": models.ProjectInProgress}); err == nil {
		out.ActiveProjects = n
	}
	if n, err := projects.CountDocuments(ctx, bson.M{"status": models.ProjectCompleted}); err == nil {
		out.CompletedProjects = n
	}
	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{}); err == nil {
		out.TotalUsers = n
	}

	return out
}
