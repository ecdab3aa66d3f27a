// internal/app/features/uploadcsv/handler.go
package uploadcsv

import (
	userstore "github.com/dalemusser/sitetrack/internal/app/store/users"
	"github.com/dalemusser/sitetrack/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler imports users in bulk from a CSV file.
type Handler struct {
	DB       *mongo.Database
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Users:    userstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}
