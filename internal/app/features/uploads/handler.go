// internal/app/features/uploads/handler.go
package uploads

import (
	"errors"
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/metrics"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"github.com/dalemusser/sitetrack/internal/app/system/upload"
	"go.uber.org/zap"
)

// maxRequestBytes leaves room for the multipart framing around the largest
// allowed file.
const maxRequestBytes = upload.MaxPDFBytes + 1<<20

// Handler accepts file uploads for project images, floor plans and logos.
type Handler struct {
	Uploads *upload.Service
	Log     *zap.Logger
}

func NewHandler(svc *upload.Service, logger *zap.Logger) *Handler {
	return &Handler{Uploads: svc, Log: logger}
}

// HandleUpload stores the multipart "file" field. The "type" field selects
// image (default) or pdf validation.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Unauthorized(""))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonutil.Error(w, h.Log, apperr.Validation("upload is too large"))
			return
		}
		jsonutil.Error(w, h.Log, apperr.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Validation("No file provided"))
		return
	}
	defer file.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "store upload")
	defer cancel()

	saved, err := h.Uploads.Save(ctx, upload.Input{
		Kind:         r.FormValue("type"),
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         file,
		UploadedBy:   uid,
	})
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	metrics.RecordUpload(saved.Type, saved.Size)

	h.Log.Info("file uploaded",
		zap.String("url", saved.URL),
		zap.String("type", saved.Type),
		zap.Int64("size", saved.Size),
		zap.String("user_id", uid.Hex()))

	jsonutil.OK(w, map[string]any{"file": saved})
}
