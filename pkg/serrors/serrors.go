package serrors

import (
	"fmt"
)

// Base is a structured error carrying a stable machine-readable code next to
// the human-readable message. Services return Base errors so controllers can
// map them to response payloads without string matching.
type Base struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Base) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message, details string) *Base {
	return &Base{Code: code, Message: message, Details: details}
}

// FieldRequired marks a missing required parameter. It is rejected before any
// store call is attempted.
type FieldRequired struct {
	Base
	Field string `json:"field"`
}

func NewFieldRequiredError(field string) *FieldRequired {
	return &FieldRequired{
		Base: Base{
			Code:    "FIELD_REQUIRED",
			Message: fmt.Sprintf("field %q is required", field),
		},
		Field: field,
	}
}

// ValidationErrors maps field names to their validation failure.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(v))
}

// UnexpectedShape flags a malformed response from an external collaborator.
// Callers must surface it and leave caches untouched.
func NewUnexpectedShapeError(source, details string) *Base {
	return &Base{
		Code:    "UNEXPECTED_SHAPE",
		Message: fmt.Sprintf("unexpected response shape from %s", source),
		Details: details,
	}
}
