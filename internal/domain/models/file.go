// internal/domain/models/file.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload kinds.
const (
	FileImage = "image"
	FilePDF   = "pdf"
)

// FileUpload describes a stored blob referenced from a project, phase update,
// or floor plan list.
type FileUpload struct {
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"originalName"`
	URL          string             `bson:"url" json:"url"`
	Type         string             `bson:"type" json:"type"` // image | pdf
	Size         int64              `bson:"size" json:"size"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploadedAt"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by" json:"uploadedBy"`
}
