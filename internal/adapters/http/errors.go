package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"clubhouse/internal/adapters/http/middleware"
	"clubhouse/internal/domain/failure"
)

const maxBodyBytes = 1 << 20

// statusFor maps an engine error kind to its HTTP status and error code.
// AlreadyCheckedIn never reaches here; the check-in handler answers it with 200.
func statusFor(kind error) (int, string) {
	switch kind {
	case failure.ErrValidation:
		return http.StatusBadRequest, "validation"
	case failure.ErrAuthorization:
		return http.StatusForbidden, "authorization"
	case failure.ErrScopeMismatch:
		return http.StatusForbidden, "scope_mismatch"
	case failure.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case failure.ErrConflict:
		return http.StatusConflict, "conflict"
	case failure.ErrAlreadyProcessed:
		return http.StatusConflict, "already_processed"
	case failure.ErrInvalidToken:
		return http.StatusUnprocessableEntity, "invalid_token"
	case failure.ErrAlreadyCheckedIn:
		return http.StatusOK, "already_checked_in"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError answers err as JSON. Errors outside the engine taxonomy are logged and hidden.
func writeError(w http.ResponseWriter, err error) {
	kind := failure.KindOf(err)
	if kind == nil {
		internalError(w, err)
		return
	}
	status, code := statusFor(kind)
	middleware.WriteJSON(w, status, middleware.ErrorBody{
		Error:   code,
		Message: err.Error(),
		Field:   failure.FieldOf(err),
	})
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	middleware.WriteJSONError(w, http.StatusInternalServerError, "internal", "internal server error")
}

// strictDecode decodes a JSON body into v, rejecting unknown fields and trailing data.
// Decode failures come back as validation errors.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return failure.Validation("request body is required")
		}
		return failure.Validation("invalid request body: %s", describeDecodeError(err))
	}
	if dec.More() {
		return failure.Validation("invalid request body: trailing data")
	}
	return nil
}

func describeDecodeError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "body too large"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return strings.TrimPrefix(err.Error(), "json: ")
	}
	return "unreadable"
}
