// Package progress derives read-only summaries from project documents:
// completion percentages, the next milestone, and recent activity feeds.
// Nothing here mutates its inputs.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feed sizes used by the dashboards.
const (
	AdminRecentLimit   = 5
	ProjectRecentLimit = 8
)

// Activity is one update flattened out of a project's timeline.
type Activity struct {
	ProjectID   primitive.ObjectID  `json:"projectId"`
	ProjectName string              `json:"projectName"`
	PhaseID     string              `json:"phaseId,omitempty"`
	PhaseName   string              `json:"phaseName"`
	UpdateID    string              `json:"updateId"`
	UserID      primitive.ObjectID  `json:"userId"`
	UserName    string              `json:"userName"`
	Message     string              `json:"message"`
	Images      []models.FileUpload `json:"images,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Totals counts projects by status.
type Totals struct {
	Total     int `json:"total"`
	Planning  int `json:"planning"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	OnHold    int `json:"onHold"`
}

// CompletionPercent returns completed phases over total phases as a rounded
// percentage. A project with no phases is 0% complete.
func CompletionPercent(p *models.Project) int {
	if p == nil || len(p.Timeline) == 0 {
		return 0
	}
	done := 0
	for _, ph := range p.Timeline {
		if ph.Status == models.PhaseCompleted {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(p.Timeline)) * 100))
}

// NextMilestone returns a copy of the first phase in timeline order that is
// pending or in progress, or nil when every phase is completed or delayed.
func NextMilestone(p *models.Project) *models.Phase {
	if p == nil {
		return nil
	}
	for i := range p.Timeline {
		switch p.Timeline[i].Status {
		case models.PhasePending, models.PhaseInProgress:
			ph := p.Timeline[i]
			return &ph
		}
	}
	return nil
}

// PhaseUpdates returns the phase's updates newest first. The stored order
// is left alone.
func PhaseUpdates(ph *models.Phase) []models.Update {
	if ph == nil {
		return nil
	}
	out := make([]models.Update, len(ph.Updates))
	copy(out, ph.Updates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ProjectActivity flattens every update of a single project, newest first.
func ProjectActivity(p *models.Project, limit int) []Activity {
	if p == nil {
		return []Activity{}
	}
	return RecentActivity([]models.Project{*p}, limit)
}

// RecentActivity flattens (project, phase, update) triples across projects,
// sorts them newest first, and keeps at most limit entries. A limit of zero
// or less keeps everything.
func RecentActivity(projects []models.Project, limit int) []Activity {
	out := []Activity{}
	for i := range projects {
		p := &projects[i]
		for j := range p.Timeline {
			ph := &p.Timeline[j]
			for _, u := range ph.Updates {
				out = append(out, Activity{
					ProjectID:   p.ID,
					ProjectName: p.Name,
					PhaseID:     ph.ID,
					PhaseName:   ph.Name,
					UpdateID:    u.ID,
					UserID:      u.UserID,
					UserName:    u.UserName,
					Message:     u.Message,
					Images:      u.Images,
					CreatedAt:   u.CreatedAt,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Summarize counts projects by status.
func Summarize(projects []models.Project) Totals {
	var t Totals
	for i := range projects {
		t.Total++
		switch projects[i].Status {
		case models.ProjectPlanning:
			t.Planning++
		case models.ProjectInProgress:
			t.Active++
		case models.ProjectCompleted:
			t.Completed++
		case models.ProjectOnHold:
			t.OnHold++
		}
	}
	return t
}

// ProjectSummary is the per-project card shown on dashboards.
type ProjectSummary struct {
	ID                primitive.ObjectID `json:"id"`
	Name              string             `json:"name"`
	Status            string             `json:"status"`
	CompletionPercent int                `json:"completionPercent"`
	PhaseCount        int                `json:"phaseCount"`
	NextMilestone     *models.Phase      `json:"nextMilestone,omitempty"`
	LastActivityAt    *time.Time         `json:"lastActivityAt,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Card builds the dashboard card for p.
func Card(p *models.Project) ProjectSummary {
	s := ProjectSummary{
		ID:                p.ID,
		Name:              p.Name,
		Status:            p.Status,
		CompletionPercent: CompletionPercent(p),
		PhaseCount:        len(p.Timeline),
		NextMilestone:     NextMilestone(p),
		UpdatedAt:         p.UpdatedAt,
	}
	if recent := ProjectActivity(p, 1); len(recent) == 1 {
		at := recent[0].CreatedAt
		s.LastActivityAt = &at
	}
	return s
}
