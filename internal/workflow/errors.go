package workflow

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable classification of a workflow failure.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeConflict            Code = "CONFLICT"
	CodeExternalUnavailable Code = "EXTERNAL_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL"

	// Guard-specific refinements of the taxonomy above.
	CodeDocsNotVerified        Code = "DOCS_NOT_VERIFIED"
	CodeHandoverIncomplete     Code = "HANDOVER_INCOMPLETE"
	CodePropertyAlreadyEngaged Code = "PROPERTY_ALREADY_ENGAGED"
)

// Error carries enough detail for a caller to self-correct: the code,
// the aggregate's current state and the events it would accept.
type Error struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	State   string   `json:"state,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

func (e *Error) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: %s (state %s)", e.Code, e.Message, e.State)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeDocsNotVerified, CodeHandoverIncomplete:
		return http.StatusUnprocessableEntity
	case CodeConflict, CodePropertyAlreadyEngaged:
		return http.StatusConflict
	case CodeExternalUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds a workflow error with the given code and message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown aggregate id.
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports an event that is not legal for the current
// state, naming the events that would be accepted.
func InvalidTransition(state string, allowed []string, format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf(format, args...),
		State:   state,
		Allowed: allowed,
	}
}

// Conflict reports a concurrent mutation or duplicate engagement.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// AsError coerces any error into a workflow error, wrapping unexpected
// faults as INTERNAL so no raw detail leaks to callers.
func AsError(err error) *Error {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr
	}
	return &Error{Code: CodeInternal, Message: "internal error"}
}
