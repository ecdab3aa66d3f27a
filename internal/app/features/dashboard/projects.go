// internal/app/features/dashboard/projects.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/progress"
)

type projectsData struct {
	Role     string                    `json:"role"`
	Totals   progress.Totals           `json:"totals"`
	Projects []progress.ProjectSummary `json:"projects"`
	Recent   []progress.Activity       `json:"recent"`
}

// ServeProjects returns a card for each project the caller can see, with
// status totals and the most recent updates across them.
func (h *Handler) ServeProjects(w http.ResponseWriter, r *http.Request) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	list, err := h.Projects.ListForUser(ctx, uid, role)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	cards := make([]progress.ProjectSummary, 0, len(list))
	for i := range list {
		cards = append(cards, progress.Card(&list[i]))
	}

	jsonutil.OK(w, projectsData{
		Role:     role,
		Totals:   progress.Summarize(list),
		Projects: cards,
		Recent:   progress.RecentActivity(list, progress.ProjectRecentLimit),
	})
}
