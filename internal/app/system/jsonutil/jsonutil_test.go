package jsonutil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"github.com/dalemusser/sitetrack/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

func TestError_MapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Unauthorized(""), http.StatusUnauthorized, apperr.CodeUnauthorized},
		{apperr.Forbidden(""), http.StatusForbidden, apperr.CodeForbidden},
		{apperr.NotFound("project not found"), http.StatusNotFound, apperr.CodeNotFound},
		{apperr.Validation("name is required"), http.StatusBadRequest, apperr.CodeInvalidInput},
		{errors.New("mongo exploded"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		jsonutil.Error(rec, zap.NewNop(), tc.err)

		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var body jsonutil.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tc.code {
			t.Errorf("%v: code = %q, want %q", tc.err, body.Code, tc.code)
		}
	}
}

func TestError_HidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonutil.Error(rec, zap.NewNop(), errors.New("connection string leaked"))

	if strings.Contains(rec.Body.String(), "leaked") {
		t.Error("internal error details should not reach the client")
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Slab"}`))
	if err := jsonutil.Decode(req, &dst); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if dst.Name != "Slab" {
		t.Errorf("Name = %q, want Slab", dst.Name)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{bad`))
	if err := jsonutil.Decode(req, &dst); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(``))
	if err := jsonutil.Decode(req, &dst); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for empty body, got %v", err)
	}
}
