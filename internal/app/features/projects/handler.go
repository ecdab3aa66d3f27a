// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/policy/projectpolicy"
	projectstore "github.com/dalemusser/sitetrack/internal/app/store/projects"
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/metrics"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mutation names used for metrics labels.
const (
	opCreate          = "create_project"
	opUpdate          = "update_project"
	opPostUpdate      = "post_update"
	opDeleteUpdate    = "delete_update"
	opReplaceMaterial = "replace_materials"
	opPhaseStatus     = "phase_status"
)

// Handler serves the project endpoints for every role. Access checks run
// before any write.
type Handler struct {
	Projects *projectstore.Store
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Projects: projectstore.New(db),
		Users:    userstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}

// projectID parses the {id} URL parameter. A malformed id is reported the
// same way as an unknown one.
func projectID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, projectstore.ErrNotFound
	}
	return oid, nil
}

// load fetches the project named by the URL.
func (h *Handler) load(ctx context.Context, r *http.Request) (*models.Project, error) {
	id, err := projectID(r)
	if err != nil {
		return nil, err
	}
	return h.Projects.GetByID(ctx, id)
}

// loadReadable fetches the project and checks the caller may see it.
func (h *Handler) loadReadable(ctx context.Context, r *http.Request) (*models.Project, error) {
	who, ok := projectpolicy.FromRequest(r)
	if !ok {
		return nil, apperr.Unauthorized("")
	}
	p, err := h.load(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := projectpolicy.AuthorizeRead(who, ok, p); err != nil {
		return nil, err
	}
	return p, nil
}

// loadWritable fetches the project and checks the caller may change its
// phases. Homeowners probing a project that is not theirs get NotFound, as
// on reads; every other denial is Forbidden.
func (h *Handler) loadWritable(ctx context.Context, r *http.Request) (projectpolicy.Principal, *models.Project, error) {
	who, ok := projectpolicy.FromRequest(r)
	if !ok {
		return who, nil, apperr.Unauthorized("")
	}
	p, err := h.load(ctx, r)
	if err != nil {
		return who, nil, err
	}
	if who.Role == models.RoleHomeowner {
		if err := projectpolicy.AuthorizeRead(who, ok, p); err != nil {
			return who, nil, err
		}
	}
	if err := projectpolicy.AuthorizeMutation(who, ok, p); err != nil {
		return who, nil, err
	}
	return who, p, nil
}

// fail records the outcome of a mutation and writes the error.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	metrics.RecordMutation(op, metrics.Outcome(err))
	jsonutil.Error(w, h.Log, err)
}

// succeed records a successful mutation.
func succeed(op string) {
	metrics.RecordMutation(op, metrics.OutcomeOK)
}
