// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project lifecycle states.
const (
	ProjectPlanning   = "planning"
	ProjectInProgress = "in-progress"
	ProjectCompleted  = "completed"
	ProjectOnHold     = "on-hold"
)

// Phase states.
const (
	PhasePending    = "pending"
	PhaseInProgress = "in-progress"
	PhaseCompleted  = "completed"
	PhaseDelayed    = "delayed"
)

// Project is a construction job owned by exactly one homeowner and staffed
// by any number of engineers and managers. The timeline is the ordered list
// of phases; its order is the display order.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Budget      *float64             `bson:"budget,omitempty" json:"budget,omitempty"`
	StartDate   *time.Time           `bson:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time           `bson:"end_date,omitempty" json:"endDate,omitempty"`
	HomeownerID primitive.ObjectID   `bson:"homeowner_id" json:"homeownerId"`
	EngineerIDs []primitive.ObjectID `bson:"engineer_ids" json:"engineerIds"`
	ManagerIDs  []primitive.ObjectID `bson:"manager_ids" json:"managerIds"`
	Status      string               `bson:"status" json:"status"` // planning | in-progress | completed | on-hold
	Timeline    []Phase              `bson:"timeline" json:"timeline"`
	FloorPlans  []FileUpload         `bson:"floor_plans" json:"floorPlans"`
	Images      []FileUpload         `bson:"images" json:"images"`
	CoverImage  *FileUpload          `bson:"cover_image,omitempty" json:"coverImage,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	// Revision is bumped by every write and guards whole-document rewrites.
	Revision int64 `bson:"revision" json:"-"`
}

// Phase is one stage of a project's timeline.
//
// Legacy documents may carry phases without an ID; those are addressed by
// name until an ID is assigned on the next write.
type Phase struct {
	ID          string     `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string     `bson:"name" json:"name"`
	Description string     `bson:"description" json:"description"`
	StartDate   *time.Time `bson:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time `bson:"end_date,omitempty" json:"endDate,omitempty"`
	Status      string     `bson:"status" json:"status"` // pending | in-progress | completed | delayed
	Materials   []Material `bson:"materials" json:"materials"`
	Updates     []Update   `bson:"updates" json:"updates"`
}

// Material is a line item on a phase. The whole list is replaced on edit.
type Material struct {
	Name     string   `bson:"name" json:"name"`
	Quantity float64  `bson:"quantity" json:"quantity"`
	Unit     string   `bson:"unit" json:"unit"`
	Cost     *float64 `bson:"cost,omitempty" json:"cost,omitempty"`
	Supplier string   `bson:"supplier,omitempty" json:"supplier,omitempty"`
}

// Update is an append-only progress note on a phase. UserName is captured
// when the update is written and is never re-resolved.
type Update struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	UserName  string             `bson:"user_name" json:"userName"`
	Message   string             `bson:"message" json:"message"`
	Images    []FileUpload       `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// IsValidPhaseStatus reports whether s is a known phase status.
func IsValidPhaseStatus(s string) bool {
	switch s {
	case PhasePending, PhaseInProgress, PhaseCompleted, PhaseDelayed:
		return true
	}
	return false
}

// NewID returns a fresh identifier for an embedded phase or update.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
