// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/sitetrack/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collection pairs a collection name with its optional JSON-Schema validator.
type collection struct {
	name   string
	schema bson.M
}

func collections() []collection {
	return []collection{
		{name: "users", schema: usersSchema()},
		{name: "projects", schema: projectsSchema()},
		{name: "settings"},
		{name: "audit_events"},
		{name: "guards"},
	}
}

// EnsureAll creates any missing collections and attaches the JSON-Schema
// validators. Servers without collMod support (some DocumentDB versions)
// keep the collections but skip the validators.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	var errs []error
	for _, c := range collections() {
		if !existing[c.name] {
			if err := createCollection(ctx, db, c.name); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				continue
			}
		}
		if c.schema == nil {
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// createCollection tolerates a concurrent creator winning the race.
func createCollection(ctx context.Context, db *mongo.Database, name string) error {
	if err := db.CreateCollection(ctx, name); err != nil {
		if commandMatches(err, 48, "already exists", "namespace exists") {
			return nil
		}
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func isUnsupported(err error) bool {
	return commandMatches(err, 59, "no such command") ||
		commandMatches(err, 115, "not implemented", "not supported")
}

// commandMatches reports whether err is a command error with the given code
// or whose message contains one of the fragments.
func commandMatches(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "mobile", "role"},
			"properties": bson.M{
				"name":    bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"name_ci": bson.M{"bsonType": "string"},
				"mobile":  bson.M{"bsonType": "string", "minLength": 1, "pattern": "^\\S+$"},
				"role":    bson.M{"enum": stringsToA(models.RoleAdmin, models.RoleManager, models.RoleEngineer, models.RoleHomeowner)},
			},
		},
	}
}

// projectsSchema checks top-level fields only. Phase entries are validated
// by the repository since legacy documents may lack phase ids. Nil slices
// encode as null, so the array fields accept it.
func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "homeowner_id", "status", "timeline"},
			"properties": bson.M{
				"name":         bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"description":  bson.M{"bsonType": "string"},
				"homeowner_id": bson.M{"bsonType": "objectId"},
				"engineer_ids": bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
				"manager_ids":  bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
				"status":       bson.M{"enum": stringsToA(models.ProjectPlanning, models.ProjectInProgress, models.ProjectCompleted, models.ProjectOnHold)},
				"timeline":     bson.M{"bsonType": bson.A{"array", "null"}},
				"budget":       bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
			},
		},
	}
}

func stringsToA(vals ...string) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, v)
	}
	return out
}
