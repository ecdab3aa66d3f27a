package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"unauthorized", apperr.Unauthorized(""), apperr.KindUnauthorized},
		{"forbidden", apperr.Forbidden("nope"), apperr.KindForbidden},
		{"not found", apperr.NotFound("missing"), apperr.KindNotFound},
		{"validation", apperr.Validation("bad"), apperr.KindValidation},
		{"wrapped", fmt.Errorf("load: %w", apperr.NotFound("x")), apperr.KindNotFound},
		{"no documents", mongo.ErrNoDocuments, apperr.KindNotFound},
		{"plain", errors.New("boom"), apperr.KindInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := apperr.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKindStatus(t *testing.T) {
	if apperr.KindUnauthorized.Status() != http.StatusUnauthorized {
		t.Error("unauthorized should map to 401")
	}
	if apperr.KindForbidden.Status() != http.StatusForbidden {
		t.Error("forbidden should map to 403")
	}
	if apperr.KindNotFound.Status() != http.StatusNotFound {
		t.Error("not found should map to 404")
	}
	if apperr.KindValidation.Status() != http.StatusBadRequest {
		t.Error("validation should map to 400")
	}
	if apperr.KindInternal.Status() != http.StatusInternalServerError {
		t.Error("internal should map to 500")
	}
}

func TestIs_MatchesKindSentinel(t *testing.T) {
	sentinel := apperr.NotFound("phase not found")
	err := fmt.Errorf("add update: %w", sentinel)

	if !errors.Is(err, apperr.ErrNotFound) {
		t.Error("expected wrapped not-found to match kind sentinel")
	}
	if !errors.Is(err, sentinel) {
		t.Error("expected wrapped error to match its own sentinel")
	}
	if errors.Is(err, apperr.NotFound("phase not found")) {
		t.Error("distinct sentinels with messages should not match")
	}
	if errors.Is(err, apperr.ErrForbidden) {
		t.Error("not-found should not match forbidden")
	}
}

func TestInternal_Unwraps(t *testing.T) {
	cause := errors.New("socket closed")
	err := apperr.Internal("save project", cause)

	if !errors.Is(err, cause) {
		t.Error("expected Internal to unwrap to its cause")
	}
	if err.Error() != "save project: socket closed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
