package progress_test

import (
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/progress"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func phase(name, status string, updates ...models.Update) models.Phase {
	return models.Phase{ID: models.NewID(), Name: name, Status: status, Updates: updates}
}

func update(msg string, offset time.Duration) models.Update {
	return models.Update{ID: models.NewID(), Message: msg, UserName: "Asha", CreatedAt: base.Add(offset)}
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     int
	}{
		{"no phases", nil, 0},
		{"half", []string{"completed", "completed", "pending", "in-progress"}, 50},
		{"all", []string{"completed", "completed"}, 100},
		{"rounded", []string{"completed", "pending", "pending"}, 33},
		{"two thirds", []string{"completed", "completed", "delayed"}, 67},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &models.Project{}
			for i, s := range tc.statuses {
				p.Timeline = append(p.Timeline, phase(string(rune('A'+i)), s))
			}
			if got := progress.CompletionPercent(p); got != tc.want {
				t.Errorf("CompletionPercent = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNextMilestone(t *testing.T) {
	p := &models.Project{Timeline: []models.Phase{
		phase("Foundation", models.PhaseCompleted),
		phase("Framing", models.PhaseDelayed),
		phase("Roofing", models.PhasePending),
		phase("Finishing", models.PhaseInProgress),
	}}

	got := progress.NextMilestone(p)
	if got == nil || got.Name != "Roofing" {
		t.Fatalf("NextMilestone = %+v, want Roofing", got)
	}

	got.Name = "changed"
	if p.Timeline[2].Name != "Roofing" {
		t.Error("NextMilestone must return a copy")
	}

	done := &models.Project{Timeline: []models.Phase{phase("Only", models.PhaseCompleted)}}
	if progress.NextMilestone(done) != nil {
		t.Error("expected nil when all phases are completed")
	}
}

func TestPhaseUpdates_SortsWithoutMutating(t *testing.T) {
	ph := phase("Foundation", models.PhaseInProgress,
		update("first", 0),
		update("third", 2*time.Hour),
		update("second", time.Hour),
	)

	got := progress.PhaseUpdates(&ph)
	if got[0].Message != "third" || got[1].Message != "second" || got[2].Message != "first" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].Message, got[1].Message, got[2].Message)
	}
	if ph.Updates[0].Message != "first" || ph.Updates[1].Message != "third" {
		t.Error("stored update order must not change")
	}
}

func TestRecentActivity(t *testing.T) {
	p1 := models.Project{ID: primitive.NewObjectID(), Name: "Villa", Timeline: []models.Phase{
		phase("Foundation", models.PhaseCompleted, update("a", 1*time.Hour), update("b", 5*time.Hour)),
		phase("Framing", models.PhaseInProgress, update("c", 3*time.Hour)),
	}}
	p2 := models.Project{ID: primitive.NewObjectID(), Name: "Cottage", Timeline: []models.Phase{
		phase("Plumbing", models.PhasePending, update("d", 4*time.Hour), update("e", 2*time.Hour), update("f", 6*time.Hour)),
	}}
	projects := []models.Project{p1, p2}

	got := progress.RecentActivity(projects, progress.AdminRecentLimit)
	if len(got) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(got))
	}
	want := []string{"f", "b", "d", "c", "e"}
	for i, w := range want {
		if got[i].Message != w {
			t.Errorf("activity[%d] = %q, want %q", i, got[i].Message, w)
		}
	}
	if got[0].ProjectName != "Cottage" || got[0].PhaseName != "Plumbing" {
		t.Errorf("unexpected attribution %+v", got[0])
	}

	all := progress.RecentActivity(projects, 0)
	if len(all) != 6 {
		t.Errorf("expected all 6 activities with no limit, got %d", len(all))
	}

	if projects[0].Timeline[0].Updates[0].Message != "a" {
		t.Error("inputs must not be reordered")
	}
}

func TestRecentActivity_Empty(t *testing.T) {
	got := progress.RecentActivity(nil, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	projects := []models.Project{
		{Status: models.ProjectPlanning},
		{Status: models.ProjectInProgress},
		{Status: models.ProjectInProgress},
		{Status: models.ProjectCompleted},
		{Status: models.ProjectOnHold},
	}
	got := progress.Summarize(projects)
	if got.Total != 5 || got.Active != 2 || got.Completed != 1 || got.Planning != 1 || got.OnHold != 1 {
		t.Errorf("unexpected totals %+v", got)
	}
}

func TestCard(t *testing.T) {
	p := &models.Project{
		ID:     primitive.NewObjectID(),
		Name:   "Villa",
		Status: models.ProjectInProgress,
		Timeline: []models.Phase{
			phase("Foundation", models.PhaseCompleted, update("poured", time.Hour)),
			phase("Framing", models.PhasePending),
		},
	}
	c := progress.Card(p)
	if c.CompletionPercent != 50 {
		t.Errorf("CompletionPercent = %d", c.CompletionPercent)
	}
	if c.NextMilestone == nil || c.NextMilestone.Name != "Framing" {
		t.Errorf("NextMilestone = %+v", c.NextMilestone)
	}
	if c.LastActivityAt == nil || !c.LastActivityAt.Equal(base.Add(time.Hour)) {
		t.Errorf("LastActivityAt = %v", c.LastActivityAt)
	}
}
