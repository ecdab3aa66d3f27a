// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"net/http"

	metricsstore "github.com/dalemusser/sitetrack/internal/app/store/metrics"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/progress"
	"go.uber.org/zap"
)

type adminData struct {
	metricsstore.Counts
	Recent []progress.Activity `json:"recent"`
}

// ServeAdmin returns the system-wide counts and the latest updates across
// every project.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	_, uname, _, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	counts := metricsstore.FetchDashboardCounts(ctx, h.DB)

	all, err := h.Projects.List(ctx)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	h.Log.Debug("admin dashboard served", zap.String("user", uname))

	jsonutil.OK(w, adminData{
		Counts: counts,
		Recent: progress.RecentActivity(all, progress.AdminRecentLimit),
	})
}
