// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the settings collection, which holds at most
// one document.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("settings")}
}

// Get returns the saved settings, or the defaults when nothing has been
// saved yet.
func (s *Store) Get(ctx context.Context) (models.SiteSettings, error) {
	var out models.SiteSettings
	err := s.c.FindOne(ctx, bson.M{}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultSiteSettings(), nil
	}
	if err != nil {
		return models.SiteSettings{}, apperr.Internal("load settings", err)
	}
	return out, nil
}

// Actor identifies who saved the settings.
type Actor struct {
	ID   primitive.ObjectID
	Name string
}

// Save validates and upserts the settings document and returns it as
// stored. An empty primary color falls back to the default.
func (s *Store) Save(ctx context.Context, in models.SiteSettings, by Actor) (models.SiteSettings, error) {
	in.AppName = strings.TrimSpace(in.AppName)
	if in.AppName == "" {
		return models.SiteSettings{}, apperr.ValidationDetails("app name is required", map[string]string{
			"appName": "app name is required",
		})
	}
	in.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	if in.PrimaryColor == "" {
		in.PrimaryColor = models.DefaultPrimaryColor
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"app_name":        in.AppName,
		"company_name":    strings.TrimSpace(in.CompanyName),
		"logo":            strings.TrimSpace(in.Logo),
		"primary_color":   in.PrimaryColor,
		"contact_email":   strings.TrimSpace(in.ContactEmail),
		"contact_phone":   strings.TrimSpace(in.ContactPhone),
		"address":         strings.TrimSpace(in.Address),
		"updated_at":      now,
		"updated_by_name": by.Name,
	}
	if !by.ID.IsZero() {
		set["updated_by_id"] = by.ID
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.SiteSettings
	err := s.c.FindOneAndUpdate(ctx, bson.M{}, bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}, opts).Decode(&out)
	if err != nil {
		return models.SiteSettings{}, apperr.Internal("save settings", err)
	}
	return out, nil
}

// Exists reports whether settings have ever been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return false, apperr.Internal("count settings", err)
	}
	return n > 0, nil
}
