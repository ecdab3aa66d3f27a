// internal/app/system/upload/upload.go
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Size limits per kind.
const (
	MaxImageBytes int64 = 10 << 20
	MaxPDFBytes   int64 = 50 << 20
)

// DefaultURLPrefix is where stored files are served from.
const DefaultURLPrefix = "/uploads"

// Allowed MIME types and the extension used when the original name has none.
var (
	imageTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/jpg":  "jpg",
		"image/png":  "png",
		"image/webp": "webp",
	}
	pdfTypes = map[string]string{
		"application/pdf": "pdf",
	}
)

// Blobs is the storage contract uploads are written through. A waffle
// storage.Store satisfies it, as does Disk.
type Blobs interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
}

// Input describes one file received from a client.
type Input struct {
	Kind         string // image | pdf; empty means image
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
	UploadedBy   primitive.ObjectID
}

// Service validates and stores uploads.
type Service struct {
	blobs     Blobs
	urlPrefix string
	now       func() time.Time
}

// New returns a Service writing to blobs and building URLs under urlPrefix.
func New(blobs Blobs, urlPrefix string) *Service {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &Service{
		blobs:     blobs,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Kind returns the upload kind for a form value, defaulting to image.
func Kind(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return models.FileImage
	}
	return v
}

// Validate checks the kind, MIME type and size before anything is stored.
func Validate(kind, contentType string, size int64) error {
	contentType = mediaType(contentType)
	switch kind {
	case models.FileImage:
		if size > MaxImageBytes {
			return apperr.Validation(fmt.Sprintf("File size must be less than %dMB", MaxImageBytes>>20))
		}
		if _, ok := imageTypes[contentType]; !ok {
			return apperr.Validation("Only JPEG, PNG, and WebP images are allowed")
		}
	case models.FilePDF:
		if size > MaxPDFBytes {
			return apperr.Validation(fmt.Sprintf("File size must be less than %dMB", MaxPDFBytes>>20))
		}
		if _, ok := pdfTypes[contentType]; !ok {
			return apperr.Validation("Only PDF files are allowed")
		}
	default:
		return apperr.Validation("type must be image or pdf")
	}
	if size <= 0 {
		return apperr.Validation("file is empty")
	}
	return nil
}

// Save validates in and stores it as <kind>s/<unix-ms>-<uuid8>.<ext>.
func (s *Service) Save(ctx context.Context, in Input) (models.FileUpload, error) {
	kind := Kind(in.Kind)
	if err := Validate(kind, in.ContentType, in.Size); err != nil {
		return models.FileUpload{}, err
	}

	now := s.now()
	filename := fmt.Sprintf("%d-%s.%s", now.UnixMilli(), uuid.New().String()[:8], extension(kind, in.OriginalName, in.ContentType))
	key := path.Join(kind+"s", filename)

	// Cap reads at the declared size so a lying client cannot overrun the limit.
	body := io.LimitReader(in.Body, in.Size)
	if err := s.blobs.Put(ctx, key, body, &storage.PutOptions{ContentType: mediaType(in.ContentType)}); err != nil {
		return models.FileUpload{}, apperr.Internal("upload failed", fmt.Errorf("store %s: %w", key, err))
	}

	return models.FileUpload{
		Filename:     filename,
		OriginalName: path.Base(strings.ReplaceAll(in.OriginalName, "\\", "/")),
		URL:          s.urlPrefix + "/" + key,
		Type:         kind,
		Size:         in.Size,
		UploadedAt:   now,
		UploadedBy:   in.UploadedBy,
	}, nil
}

func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// extension keeps the client's extension when it is short and alphanumeric,
// and otherwise falls back to the one implied by the MIME type.
func extension(kind, name, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext != "" && len(ext) <= 5 && isAlnum(ext) {
		return ext
	}
	if kind == models.FilePDF {
		return pdfTypes["application/pdf"]
	}
	if e, ok := imageTypes[mediaType(contentType)]; ok {
		return e
	}
	return "bin"
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
