// Package handler turns HTTP requests into session and account calls and
// their results back into JSON.
//
// Every error response has the same shape, whatever the status:
//
//	{"error": "Conflict", "message": "event cl2k9 is full"}
//
// so the frontend can always read .message without checking the code first.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/auth"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // status text, e.g. "Not Found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // the input that failed validation
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader, and WriteHeader before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error category to its HTTP status. errors.Is walks the
// whole chain, so ErrEventFull is found as ErrConflict and
// ErrUnauthorizedAction as ErrForbidden.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError sends err as an ErrorResponse. Anything that is not an
// *apperror.AppError becomes a generic 500 so that SQL or file paths never
// reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   http.StatusText(http.StatusInternalServerError),
			Message: "An internal error occurred",
		})
		return
	}

	status := statusFor(err)
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected so that a typo in a field name is an error rather
// than a silently ignored value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is empty")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// currentUser returns the authenticated user's ID. Routes behind
// auth.RequireAuth always have one; the 401 is a guard for a route that was
// mounted without it.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   http.StatusText(http.StatusUnauthorized),
			Message: "valid authentication required",
		})
	}
	return id, ok
}
