// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dashboardTimeout = 5 * time.Second

type Handler struct {
	DB       *mongo.Database
	Projects *projectstore.Store
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Projects: projectstore.New(db),
		Log:      logger,
	}
}

// ServeDashboard picks the dashboard for the caller's role. Admins get the
// system-wide counts; everyone else gets the projects they can see.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Unauthorized(""))
		return
	}

	if role == models.RoleAdmin {
		h.ServeAdmin(w, r)
		return
	}
	h.ServeProjects(w, r)
}
