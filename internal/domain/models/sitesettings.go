// internal/domain/models/sitesettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings is the single branding/contact document editable by admins.
type SiteSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	AppName      string `bson:"app_name" json:"appName"`
	CompanyName  string `bson:"company_name" json:"companyName"`
	Logo         string `bson:"logo,omitempty" json:"logo,omitempty"` // URL of an uploaded image
	PrimaryColor string `bson:"primary_color" json:"primaryColor"`
	ContactEmail string `bson:"contact_email,omitempty" json:"contactEmail,omitempty"`
	ContactPhone string `bson:"contact_phone,omitempty" json:"contactPhone,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`

	// Audit fields
	CreatedAt     *time.Time          `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time          `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
	UpdatedByID   *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"updatedById,omitempty"`
	UpdatedByName string              `bson:"updated_by_name,omitempty" json:"updatedByName,omitempty"`
}

// HasLogo returns true if a logo has been uploaded.
func (s *SiteSettings) HasLogo() bool {
	return s.Logo != ""
}

// Defaults used when no settings document exists yet.
const (
	DefaultAppName      = "Construction Pro"
	DefaultCompanyName  = "Your Construction Company"
	DefaultPrimaryColor = "#3b82f6"
	DefaultContactEmail = "contact@constructionpro.com"
	DefaultContactPhone = "+1 (555) 123-4567"
)

// DefaultSiteSettings returns the settings served before an admin saves any.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		AppName:      DefaultAppName,
		CompanyName:  DefaultCompanyName,
		PrimaryColor: DefaultPrimaryColor,
		ContactEmail: DefaultContactEmail,
		ContactPhone: DefaultContactPhone,
	}
}
