// Package jsonutil writes JSON responses and classified JSON errors.
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/sitetrack/internal/app/system/apperr"
	"go.uber.org/zap"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes payload with 200.
func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// Created writes payload with 201.
func Created(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusCreated, payload)
}

// Fail writes a plain error body with the given status and code.
func Fail(w http.ResponseWriter, status int, code, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Code: code, Details: details})
}

// Error classifies err and writes it. Internal errors are logged and their
// message is replaced with a generic one.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := apperr.As(err)
	msg := ae.Message
	if ae.Kind == apperr.KindInternal {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		msg = "internal server error"
	}
	if msg == "" {
		msg = ae.Kind.String()
	}
	Fail(w, ae.Kind.Status(), ae.Kind.Code(), msg, ae.Details)
}

// Decode reads a JSON body into dst. Malformed bodies become validation
// errors.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}
