// internal/app/features/uploadcsv/import.go
package uploadcsv

import (
	"context"

	"github.com/dalemusser/sitetrack/internal/app/system/csvutil"
	"github.com/dalemusser/sitetrack/internal/app/system/txn"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type userWriter interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error
}

// importUsers creates one user per row, all or none. Inside a transaction
// a failed row aborts the batch; without one the users created so far are
// deleted again before the error is returned.
func importUsers(ctx context.Context, db *mongo.Database, w userWriter, rows []csvutil.UserRow, logger *zap.Logger) ([]models.User, error) {
	var created []models.User
	err := txn.Run(ctx, db, logger, func(ctx context.Context) error {
		created = created[:0]
		for _, row := range rows {
			u, err := w.Create(ctx, models.User{Name: row.Name, Mobile: row.Mobile, Role: row.Role})
			if err != nil {
				logger.Warn("csv import stopped",
					zap.Int("line", row.Line),
					zap.Int("created", len(created)),
					zap.Error(err))
				if mongo.SessionFromContext(ctx) != nil {
					return err
				}
				if rerr := rollback(ctx, w, created); rerr != nil {
					logger.Error("csv import rollback failed", zap.Error(rerr))
				}
				return err
			}
			created = append(created, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func rollback(ctx context.Context, w userWriter, created []models.User) error {
	ids := make([]primitive.ObjectID, 0, len(created))
	for _, u := range created {
		ids = append(ids, u.ID)
	}
	return w.DeleteByIDs(ctx, ids)
}
