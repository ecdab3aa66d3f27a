// internal/app/features/uploadcsv/upload.go
package uploadcsv

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/authz"
	"github.com/dalemusser/sitetrack/internal/app/system/csvutil"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// maxShownErrors caps the row errors echoed back for a rejected file.
const maxShownErrors = 20

type importResponse struct {
	DryRun  bool              `json:"dryRun"`
	Created int               `json:"created"`
	Users   []csvutil.UserRow `json:"users"`
}

// HandleImport handles POST /api/admin/import/users.
//
// The multipart "file" field holds name,mobile,role rows. The whole file is
// rejected when any row is invalid or any mobile is already registered.
// With dryRun=true the validated rows are returned without writing.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	_, _, actorID, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.Error(w, h.Log, apperr.Unauthorized(""))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize+1<<16)
	if err := r.ParseMultipartForm(csvutil.MaxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonutil.Error(w, h.Log, apperr.Validation("CSV file is too large"))
			return
		}
		jsonutil.Error(w, h.Log, apperr.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	dryRun, _ := strconv.ParseBool(r.FormValue("dryRun"))

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Validation("No file provided"))
		return
	}
	defer file.Close()

	parsed, err := csvutil.ParseUsersCSV(file, csvutil.DefaultParseOptions())
	if errors.Is(err, csvutil.ErrTooManyRows) {
		jsonutil.Error(w, h.Log, apperr.Validation("CSV has more than "+strconv.Itoa(csvutil.MaxRows)+" rows"))
		return
	}
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Validation("could not read CSV file"))
		return
	}
	if parsed.HasErrors() {
		shown := parsed.Errors
		if len(shown) > maxShownErrors {
			shown = shown[:maxShownErrors]
		}
		jsonutil.Error(w, h.Log, apperr.ValidationDetails("CSV file contains errors", map[string]any{
			"rows":  shown,
			"total": len(parsed.Errors),
		}))
		return
	}
	if len(parsed.Rows) == 0 {
		jsonutil.Error(w, h.Log, apperr.Validation("CSV file has no users"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "csv user import")
	defer cancel()

	mobiles := make([]string, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		mobiles = append(mobiles, row.Mobile)
	}
	taken, err := h.Users.ExistingMobiles(ctx, mobiles)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	if len(taken) > 0 {
		e := apperr.Conflict("some mobile numbers are already registered")
		e.Details = map[string]any{"mobiles": taken}
		jsonutil.Error(w, h.Log, e)
		return
	}

	if dryRun {
		jsonutil.OK(w, importResponse{DryRun: true, Users: parsed.Rows})
		return
	}

	users, err := importUsers(ctx, h.DB, h.Users, parsed.Rows, h.Log)
	if err != nil {
		jsonutil.Error(w, h.Log, err)
		return
	}
	for _, u := range users {
		h.AuditLog.UserCreated(ctx, r, actorID, u.ID, u.Role)
	}
	created := len(users)

	h.Log.Info("users imported from csv",
		zap.Int("created", created),
		zap.String("actor_id", actorID.Hex()))

	jsonutil.Created(w, importResponse{Created: created, Users: parsed.Rows})
}
