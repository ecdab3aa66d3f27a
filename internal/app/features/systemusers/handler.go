// internal/app/features/systemusers/handler.go
package systemusers

import (
	"net/http"

	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

// NewHandler constructs the user management handler bound to the given
// Mongo database and logger.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Log:      logger,
		AuditLog: audit,
	}
}

// userID parses the {id} URL parameter. A malformed id is reported as not
// found, like an id that matches nothing.
func userID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, userstore.ErrNotFound
	}
	return oid, nil
}

// actorID returns the signed-in admin's id. Routes guarantee a user.
func actorID(r *http.Request) (primitive.ObjectID, error) {
	_, _, who, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("")
	}
	return who, nil
}
