// internal/app/features/projects/user.go
package projects

import (
	"net/http"
	"strings"

	"github.com/dalemusser/sitetrack/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/progress"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/projects                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList returns the projects the caller can see, each with its card.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	who, ok := projectpolicy.FromRequest(r)
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Unauthorized(""))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list projects")
	defer cancel()

	list, err := h.Projects.ListForUser(ctx, who.ID, who.Role)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	cards := make([]progress.ProjectSummary, 0, len(list))
	for i := range list {
		cards = append(cards, progress.Card(&list[i]))
	}
	jsonutil.OK(w, map[string]any{
		"projects": list,
		"cards":    cards,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/projects/{id}                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeProject returns one project with its progress summary and the most
// recent updates across its phases.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get project")
	defer cancel()

	p, err := h.loadReadable(ctx, r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	jsonutil.OK(w, map[string]any{
		"project": p,
		"summary": progress.Card(p),
		"recent":  progress.ProjectActivity(p, progress.ProjectRecentLimit),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/projects/{id}/updates                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeUpdates lists updates newest first: every phase's by default, or a
// single phase's with ?phaseId= or ?phaseName=.
func (h *Handler) ServeUpdates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list updates")
	defer cancel()

	p, err := h.loadReadable(ctx, r)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}

	target := phaseTarget{PhaseID: query.Get(r, "phaseId"), PhaseName: query.Get(r, "phaseName")}
	if target.empty() {
		jsonutil.OK(w, map[string]any{"updates": progress.ProjectActivity(p, 0)})
		return
	}

	ph := projectstore.FindPhase(p, target.ref())
	if ph == nil {
		jsonutil.Error(w, h.Log, projectstore.ErrPhaseNotFound)
		return
	}
	jsonutil.OK(w, map[string]any{
		"phaseId":   ph.ID,
		"phaseName": ph.Name,
		"updates":   progress.PhaseUpdates(ph),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/projects/{id}/updates                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// HandlePostUpdate records a progress note, a phase status change, or both,
// as one write.
func (h *Handler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	var req postUpdateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.fail(w, opPostUpdate, err)
		return
	}
	if req.empty() {
		h.fail(w, opPostUpdate, apperr.ValidationDetails("missing required fields", map[string]string{
			"phaseId": "phase is required",
		}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "post update")
	defer cancel()

	who, p, err := h.loadWritable(ctx, r)
	if err != nil {
		h.fail(w, opPostUpdate, err)
		return
	}

	ref := req.ref()
	u, err := h.Projects.PostUpdate(ctx, p.ID, ref, projectstore.PostInput{
		Update: models.Update{
			UserID:   who.ID,
			UserName: who.Name,
			Message:  htmlsanitize.PlainText(req.Message),
			Images:   req.Images,
		},
		Status: req.PhaseStatus,
	})
	if err != nil {
		h.fail(w, opPostUpdate, err)
		return
	}
	succeed(opPostUpdate)

	phase := phaseLabel(projectstore.FindPhase(p, ref), ref)
	h.AuditLog.UpdatePosted(ctx, r, who.ID, p.ID, who.Role, phase, u.ID)
	if status := strings.TrimSpace(req.PhaseStatus); status != "" {
		h.AuditLog.PhaseStatusChanged(ctx, r, who.ID, p.ID, who.Role, phase, strings.ToLower(status))
	}

	jsonutil.Created(w, map[string]any{"update": u})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/projects/{id}/updates?phaseId=&updateId=                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeleteUpdate removes one update. Admins may delete any update;
// assigned staff only their own.
func (h *Handler) HandleDeleteUpdate(w http.ResponseWriter, r *http.Request) {
	target := phaseTarget{PhaseID: query.Get(r, "phaseId"), PhaseName: query.Get(r, "phaseName")}
	updateID := strings.TrimSpace(query.Get(r, "updateId"))
	if target.empty() || updateID == "" {
		h.fail(w, opDeleteUpdate, apperr.ValidationDetails("missing required fields", map[string]string{
			"phaseId":  "phase and update are required",
			"updateId": "phase and update are required",
		}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete update")
	defer cancel()

	who, p, err := h.loadWritable(ctx, r)
	if err != nil {
		h.fail(w, opDeleteUpdate, err)
		return
	}

	ref := target.ref()
	ph := projectstore.FindPhase(p, ref)
	if ph == nil {
		h.fail(w, opDeleteUpdate, projectstore.ErrPhaseNotFound)
		return
	}
	u := projectstore.FindUpdate(ph, updateID)
	if u == nil {
		h.fail(w, opDeleteUpdate, projectstore.ErrUpdateNotFound)
		return
	}
	if err := projectpolicy.AuthorizeDeleteUpdate(who, true, p, u); err != nil {
		h.fail(w, opDeleteUpdate, err)
		return
	}

	if err := h.Projects.DeleteUpdate(ctx, p.ID, ref, updateID); err != nil {
		h.fail(w, opDeleteUpdate, err)
		return
	}
	succeed(opDeleteUpdate)

	h.AuditLog.UpdateDeleted(ctx, r, who.ID, p.ID, who.Role, phaseLabel(ph, ref), updateID)
	jsonutil.OK(w, map[string]bool{"ok": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/projects/{id}/materials                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleReplaceMaterials swaps a phase's material list. Entries missing a
// name or unit are dropped; the stored list is returned.
func (h *Handler) HandleReplaceMaterials(w http.ResponseWriter, r *http.Request) {
	var req materialsRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.fail(w, opReplaceMaterial, err)
		return
	}
	problems := map[string]string{}
	if req.empty() {
		problems["phaseId"] = "phase is required"
	}
	if req.Materials == nil {
		problems["materials"] = "materials are required"
	}
	if len(problems) > 0 {
		h.fail(w, opReplaceMaterial, apperr.ValidationDetails("missing required fields", problems))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "replace materials")
	defer cancel()

	who, p, err := h.loadWritable(ctx, r)
	if err != nil {
		h.fail(w, opReplaceMaterial, err)
		return
	}

	ref := req.ref()
	stored, err := h.Projects.ReplaceMaterials(ctx, p.ID, ref, projectstore.MaterialsFromInput(req.Materials))
	if err != nil {
		h.fail(w, opReplaceMaterial, err)
		return
	}
	succeed(opReplaceMaterial)

	if dropped := len(req.Materials) - len(stored); dropped > 0 {
		h.Log.Debug("materials dropped during sanitizing",
			zap.String("project_id", p.ID.Hex()), zap.Int("dropped", dropped))
	}
	h.AuditLog.MaterialsReplaced(ctx, r, who.ID, p.ID, who.Role, phaseLabel(projectstore.FindPhase(p, ref), ref), len(stored))
	jsonutil.OK(w, map[string]any{"materials": stored})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/projects/{id}/phases/{phaseId}/status                              |
*─────────────────────────────────────────────────────────────────────────────*/

// HandlePhaseStatus moves a phase to any of the four statuses.
func (h *Handler) HandlePhaseStatus(w http.ResponseWriter, r *http.Request) {
	var req phaseStatusRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.fail(w, opPhaseStatus, err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !models.IsValidPhaseStatus(status) {
		h.fail(w, opPhaseStatus, apperr.ValidationDetails("invalid phase status", map[string]string{
			"status": "must be pending, in-progress, completed or delayed",
		}))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "set phase status")
	defer cancel()

	who, p, err := h.loadWritable(ctx, r)
	if err != nil {
		h.fail(w, opPhaseStatus, err)
		return
	}

	ref := phaseTarget{PhaseID: chi.URLParam(r, "phaseId"), PhaseName: req.PhaseName}.ref()
	if err := h.Projects.SetPhaseStatus(ctx, p.ID, ref, status); err != nil {
		h.fail(w, opPhaseStatus, err)
		return
	}
	succeed(opPhaseStatus)

	phase := phaseLabel(projectstore.FindPhase(p, ref), ref)
	h.AuditLog.PhaseStatusChanged(ctx, r, who.ID, p.ID, who.Role, phase, status)
	jsonutil.OK(w, map[string]string{"phaseId": phase, "status": status})
}
