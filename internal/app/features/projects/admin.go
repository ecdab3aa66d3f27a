// internal/app/features/projects/admin.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/projects                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeAdminList returns every project, most recently updated first.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "admin list projects")
	defer cancel()

	list, err := h.Projects.List(ctx)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"projects": list})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/projects                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleCreate creates a project in "planning". The homeowner and any staff
// must exist with the matching role.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.fail(w, opCreate, err)
		return
	}
	who, _ := projectpolicy.FromRequest(r)

	problems := map[string]string{}
	if req.HomeownerID == nil {
		problems["homeownerId"] = "homeowner is required"
	}
	a := req.parseAssignment(problems)
	if len(problems) > 0 {
		h.fail(w, opCreate, apperr.ValidationDetails("missing required fields", problems))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create project")
	defer cancel()

	if err := h.checkAssignment(ctx, a); err != nil {
		h.fail(w, opCreate, err)
		return
	}

	p := models.Project{
		Name:        htmlsanitize.PlainText(deref(req.Name)),
		Description: htmlsanitize.PlainText(deref(req.Description)),
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		HomeownerID: *a.homeowner,
		FloorPlans:  deref(req.FloorPlans),
		Images:      deref(req.Images),
		CoverImage:  req.CoverImage,
	}
	if a.engineers != nil {
		p.EngineerIDs = *a.engineers
	}
	if a.managers != nil {
		p.ManagerIDs = *a.managers
	}
	if tl := req.timeline(); tl != nil {
		p.Timeline = *tl
	}

	created, err := h.Projects.Create(ctx, p)
	if err != nil {
		h.fail(w, opCreate, err)
		return
	}
	succeed(opCreate)

	h.AuditLog.ProjectCreated(ctx, r, who.ID, created.ID, created.Name, len(created.Timeline))
	h.Log.Info("project created",
		zap.String("project_id", created.ID.Hex()),
		zap.String("actor_id", who.ID.Hex()))

	jsonutil.Created(w, map[string]any{"project": created})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/projects/{id}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeAdminProject returns the raw project for the edit screens. Staff see
// only projects they are assigned to.
func (h *Handler) ServeAdminProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "admin get project")
	defer cancel()

	p, err := h.loadReadable(ctx, r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	jsonutil.OK(w, map[string]any{"project": p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/admin/projects/{id}                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdate merges the fields present in the body into the project.
// A timeline edit keeps every existing phase's updates.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		h.fail(w, opUpdate, err)
		return
	}
	var req projectRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.fail(w, opUpdate, err)
		return
	}
	who, _ := projectpolicy.FromRequest(r)

	problems := map[string]string{}
	a := req.parseAssignment(problems)
	if len(problems) > 0 {
		h.fail(w, opUpdate, apperr.ValidationDetails("invalid project fields", problems))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update project")
	defer cancel()

	if err := h.checkAssignment(ctx, a); err != nil {
		h.fail(w, opUpdate, err)
		return
	}

	pt := projectstore.Patch{
		Budget:      req.Budget,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		HomeownerID: a.homeowner,
		EngineerIDs: a.engineers,
		ManagerIDs:  a.managers,
		Status:      req.Status,
		FloorPlans:  req.FloorPlans,
		Images:      req.Images,
		CoverImage:  req.CoverImage,
		Timeline:    req.timeline(),
	}
	if req.Name != nil {
		v := htmlsanitize.PlainText(*req.Name)
		pt.Name = &v
	}
	if req.Description != nil {
		v := htmlsanitize.PlainText(*req.Description)
		pt.Description = &v
	}

	p, err := h.Projects.Update(ctx, id, pt)
	if err != nil {
		h.fail(w, opUpdate, err)
		return
	}
	succeed(opUpdate)

	h.AuditLog.ProjectUpdated(ctx, r, who.ID, p.ID, req.fieldNames())
	jsonutil.OK(w, map[string]any{"project": p})
}

// checkAssignment verifies every referenced user exists with the role the
// field implies.
func (h *Handler) checkAssignment(ctx context.Context, a assignment) error {
	want := map[primitive.ObjectID]string{}
	if a.homeowner != nil {
		want[*a.homeowner] = models.RoleHomeowner
	}
	problems := map[string]string{}
	field := map[string]string{
		models.RoleHomeowner: "homeownerId",
		models.RoleEngineer:  "engineerIds",
		models.RoleManager:   "managerIds",
	}
	add := func(ids *[]primitive.ObjectID, role string) {
		if ids == nil {
			return
		}
		for _, id := range *ids {
			if prev, ok := want[id]; ok && prev != role {
				problems[field[role]] = "a user cannot hold two roles on one project"
				continue
			}
			want[id] = role
		}
	}
	add(a.engineers, models.RoleEngineer)
	add(a.managers, models.RoleManager)
	if len(want) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	found, err := h.Users.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	roles := make(map[primitive.ObjectID]string, len(found))
	for _, u := range found {
		roles[u.ID] = u.Role
	}

	for id, role := range want {
		got, ok := roles[id]
		switch {
		case !ok:
			problems[field[role]] = "user not found"
		case got != role:
			problems[field[role]] = "user is not a " + role
		}
	}
	if len(problems) > 0 {
		return apperr.ValidationDetails("invalid project assignment", problems)
	}
	return nil
}
