// Package domainerrors defines the structured error taxonomy returned to every
// external caller. Services create errors with New and the HTTP layer maps
// codes to statuses; wrapping preserves the code so HasCode works across layers.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error class. The set is closed: handlers and clients
// switch on these values, so new codes are additions, never renames.
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeInvalidRUT           Code = "INVALID_RUT"
	CodeInvalidDates         Code = "INVALID_DATES"
	CodeInvalidAmounts       Code = "INVALID_AMOUNTS"
	CodeMissingPlaceholders  Code = "MISSING_PLACEHOLDERS"
	CodeConditionalSyntax    Code = "TEMPLATE_CONDITIONAL_SYNTAX"
	CodeGuarantorOutsideIf   Code = "TEMPLATE_GUARANTOR_OUTSIDE_IF"
	CodeTemplateNotActive    Code = "TEMPLATE_NOT_ACTIVE"
	CodeRenderFailed         Code = "RENDER_FAILED"
	CodeStorage              Code = "STORAGE_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the structured error shape exposed to callers:
// { code, message, details?, hint? }.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`

	cause error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Unwrap.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails attaches structured details (field names, offending values,
// residual token lists).
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithHint attaches a remediation hint intended for the caller.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the domain code from err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// As unwraps err into a *Error, or nil when err is not a domain error.
func As(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}
