// Package httputil centralizes JSON encoding and domain error translation so
// every handler returns the same envelope.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "rentaldocs/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are logged by
// net/http; the status line has already been committed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and the structured
// { code, message, details?, hint? } body. Foreign errors become an opaque
// INTERNAL_ERROR so internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	de := dErrors.As(err)
	if de == nil {
		WriteJSON(w, http.StatusInternalServerError, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	WriteJSON(w, statusFor(de.Code), de)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation,
		dErrors.CodeInvalidRUT,
		dErrors.CodeInvalidDates,
		dErrors.CodeInvalidAmounts,
		dErrors.CodeConditionalSyntax,
		dErrors.CodeGuarantorOutsideIf:
		return http.StatusBadRequest
	case dErrors.CodeMissingPlaceholders:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTemplateNotActive:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeRenderFailed, dErrors.CodeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a request body into T, rejecting unknown fields. A failed
// decode writes the error response and returns ok=false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "request decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return v, false
	}
	return v, true
}
