// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureProjects(ctx, db); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// isDuplicateKeyErr matches E11000 across Mongo-compatible servers.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// DocumentDB reports IndexOptionsConflict when the same keys already exist
// under another name or with other options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// desired describes one index model in comparable form.
type desired struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func describe(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = boolValue(m.Options.Unique)
	}
	return d
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if err := ensureIndex(ctx, coll, describe(m)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureIndex(ctx context.Context, coll *mongo.Collection, d desired) error {
	start := time.Now()
	log := zap.L().With(
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.Bool("unique", d.unique))
	log.Info("ensuring index")

	if ex, ok := listIndexes(ctx, coll)[d.sig]; ok {
		if boolValue(ex.Unique) == d.unique && (d.name == "" || ex.Name == d.name) {
			log.Info("reusing existing index", zap.String("took", time.Since(start).String()))
			return nil
		}
		// Same keys but a different name or uniqueness: drop and recreate.
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
			return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), d.name, err)
		}
		if err := create(ctx, coll, d); err != nil {
			return err
		}
		log.Info("index dropped and recreated", zap.String("took", time.Since(start).String()))
		return nil
	}

	created, err := coll.Indexes().CreateOne(ctx, d.model)
	if err == nil {
		log.Info("index ensured",
			zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))
		return nil
	}
	if isOptionsConflictErr(err) {
		if ex, ok := listIndexes(ctx, coll)[d.sig]; ok {
			if boolValue(ex.Unique) == d.unique {
				log.Info("reusing existing index (post-conflict)", zap.String("existing", ex.Name))
				return nil
			}
			if _, dropErr := coll.Indexes().DropOne(ctx, ex.Name); dropErr != nil {
				log.Warn("failed to drop conflicting index", zap.String("existing", ex.Name), zap.Error(dropErr))
			}
			return create(ctx, coll, d)
		}
	}
	log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
	return fmt.Errorf("%s(%s): %v", coll.Name(), d.name, err)
}

func create(ctx context.Context, coll *mongo.Collection, d desired) error {
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if isDuplicateKeyErr(err) && d.unique {
			hint := ""
			if coll.Name() == "users" && strings.Contains(d.sig, "mobile:1") {
				hint = "; find them with " +
					`db.users.aggregate([{ $group: { _id: "$mobile", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
			}
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), d.name, hint)
		}
		return fmt.Errorf("%s(%s): %v", coll.Name(), d.name, err)
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		// Mobile is the login identifier.
		{
			Keys:    bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_mobile"),
		},
		// Role-filtered pickers, sorted by name.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_role_nameci__id"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("projects"), []mongo.IndexModel{
		// One lookup per role in ListForUser.
		{
			Keys:    bson.D{{Key: "homeowner_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_projects_homeowner_updated"),
		},
		{
			Keys:    bson.D{{Key: "engineer_ids", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_projects_engineers_updated"),
		},
		{
			Keys:    bson.D{{Key: "manager_ids", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_projects_managers_updated"),
		},
		// Positional phase writes filter on the embedded id.
		{
			Keys:    bson.D{{Key: "timeline._id", Value: 1}},
			Options: options.Index().SetName("idx_projects_timeline_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_projects_status"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_projects_updated__id"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_project_ts"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_ts"),
		},
	})
}
