// internal/app/features/projects/input.go
package projects

import (
	"strings"
	"time"

	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	"github.com/dalemusser/sitetrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// phaseTarget names a phase in a request body. phaseName is accepted for
// legacy phases that have no id yet.
type phaseTarget struct {
	PhaseID   string `json:"phaseId"`
	PhaseName string `json:"phaseName"`
}

func (t phaseTarget) ref() projectstore.PhaseRef {
	return projectstore.PhaseRef{
		ID:   strings.TrimSpace(t.PhaseID),
		Name: strings.TrimSpace(t.PhaseName),
	}
}

func (t phaseTarget) empty() bool {
	r := t.ref()
	return r.ID == "" && r.Name == ""
}

// phaseLabel is what audit entries record for the phase.
func phaseLabel(ph *models.Phase, ref projectstore.PhaseRef) string {
	if ph != nil {
		if ph.ID != "" {
			return ph.ID
		}
		return ph.Name
	}
	if ref.ID != "" {
		return ref.ID
	}
	return ref.Name
}

type postUpdateRequest struct {
	phaseTarget
	Message     string              `json:"message"`
	PhaseStatus string              `json:"phaseStatus"`
	Images      []models.FileUpload `json:"images"`
}

type materialsRequest struct {
	phaseTarget
	Materials []map[string]any `json:"materials"`
}

type phaseStatusRequest struct {
	Status    string `json:"status"`
	PhaseName string `json:"phaseName"`
}

type phaseInput struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	StartDate   *time.Time       `json:"startDate"`
	EndDate     *time.Time       `json:"endDate"`
	Status      string           `json:"status"`
	Materials   []map[string]any `json:"materials"`
}

func (in phaseInput) phase() models.Phase {
	ph := models.Phase{
		ID:          strings.TrimSpace(in.ID),
		Name:        htmlsanitize.PlainText(in.Name),
		Description: htmlsanitize.PlainText(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      strings.ToLower(strings.TrimSpace(in.Status)),
	}
	// A phase sent without materials keeps the ones it has.
	if in.Materials != nil {
		ph.Materials = projectstore.MaterialsFromInput(in.Materials)
	}
	return ph
}

// projectRequest is the admin create/edit body. Every field is optional on
// edit; only the ones present are changed.
type projectRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Budget      *float64             `json:"budget"`
	StartDate   *time.Time           `json:"startDate"`
	EndDate     *time.Time           `json:"endDate"`
	HomeownerID *string              `json:"homeownerId"`
	EngineerIDs *[]string            `json:"engineerIds"`
	ManagerIDs  *[]string            `json:"managerIds"`
	Status      *string              `json:"status"`
	Timeline    *[]phaseInput        `json:"timeline"`
	FloorPlans  *[]models.FileUpload `json:"floorPlans"`
	Images      *[]models.FileUpload `json:"images"`
	CoverImage  *models.FileUpload   `json:"coverImage"`
}

// fieldNames lists the JSON fields present, for audit entries.
func (req projectRequest) fieldNames() string {
	var out []string
	add := func(present bool, name string) {
		if present {
			out = append(out, name)
		}
	}
	add(req.Name != nil, "name")
	add(req.Description != nil, "description")
	add(req.Budget != nil, "budget")
	add(req.StartDate != nil, "startDate")
	add(req.EndDate != nil, "endDate")
	add(req.HomeownerID != nil, "homeownerId")
	add(req.EngineerIDs != nil, "engineerIds")
	add(req.ManagerIDs != nil, "managerIds")
	add(req.Status != nil, "status")
	add(req.Timeline != nil, "timeline")
	add(req.FloorPlans != nil, "floorPlans")
	add(req.Images != nil, "images")
	add(req.CoverImage != nil, "coverImage")
	return strings.Join(out, ",")
}

// assignment is the parsed people on a project request.
type assignment struct {
	homeowner *primitive.ObjectID
	engineers *[]primitive.ObjectID
	managers  *[]primitive.ObjectID
}

// parseAssignment converts the id strings, collecting one problem per field.
func (req projectRequest) parseAssignment(problems map[string]string) assignment {
	var a assignment
	if req.HomeownerID != nil {
		s := strings.TrimSpace(*req.HomeownerID)
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			if s == "" {
				problems["homeownerId"] = "homeowner is required"
			} else {
				problems["homeownerId"] = "invalid homeowner id"
			}
		} else {
			a.homeowner = &oid
		}
	}
	if req.EngineerIDs != nil {
		ids, ok := parseIDs(*req.EngineerIDs)
		if !ok {
			problems["engineerIds"] = "invalid engineer id"
		}
		a.engineers = &ids
	}
	if req.ManagerIDs != nil {
		ids, ok := parseIDs(*req.ManagerIDs)
		if !ok {
			problems["managerIds"] = "invalid manager id"
		}
		a.managers = &ids
	}
	return a
}

func parseIDs(in []string) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(in))
	for _, s := range in {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, false
		}
		out = append(out, oid)
	}
	return out, true
}

func (req projectRequest) timeline() *[]models.Phase {
	if req.Timeline == nil {
		return nil
	}
	phases := make([]models.Phase, 0, len(*req.Timeline))
	for _, in := range *req.Timeline {
		phases = append(phases, in.phase())
	}
	return &phases
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
