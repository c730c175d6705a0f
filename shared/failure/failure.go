package failure

import (
	"errors"
	"net/http"
)

// Stable failure names surfaced to API clients alongside the HTTP status.
const (
	NameUnauthorized     = "Unauthorized"
	NameForbidden        = "Forbidden"
	NameValidationFailed = "ValidationFailed"
	NameNotFound         = "NotFound"
	NameRoomUnavailable  = "RoomUnavailable"
	NameConflict         = "Conflict"
	NameInternalError    = "InternalError"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
// Fields carries accumulated per-field validation messages and is only set for
// validation failures.
type Failure struct {
	Code    int                 `json:"code"`
	Name    string              `json:"name"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Error returns the failure message.
func (e *Failure) Error() string {
	return e.Message
}

// Unauthorized returns a new Failure for bad or missing credentials.
func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Name:    NameUnauthorized,
		Message: msg,
	}
}

// Forbidden returns a new Failure for an authenticated caller with an insufficient role.
func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Name:    NameForbidden,
		Message: msg,
	}
}

// ValidationFailed returns a new Failure carrying accumulated field errors.
func ValidationFailed(fields map[string][]string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Name:    NameValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// FieldError returns a ValidationFailed failure for a single field violation.
func FieldError(field, msg string) error {
	return ValidationFailed(map[string][]string{field: {msg}})
}

// BadRequest returns a new Failure for malformed requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Name:    NameValidationFailed,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure for malformed requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Name:    NameValidationFailed,
		Message: msg,
	}
}

// NotFound returns a new Failure for a missing entity.
func NotFound(msg string) error {
	return &Failure{
		Code:    http.StatusNotFound,
		Name:    NameNotFound,
		Message: msg,
	}
}

// RoomUnavailable returns a new Failure for the business rule that a room
// already holds an active booking. Distinct from Conflict so callers can tell
// a booking race from a referential violation.
func RoomUnavailable(msg string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Name:    NameRoomUnavailable,
		Message: msg,
	}
}

// Conflict returns a new Failure for operations that would break a referential
// or uniqueness invariant.
func Conflict(msg string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Name:    NameConflict,
		Message: msg,
	}
}

// InternalError wraps an unexpected storage or infrastructure error. The raw
// provider error never reaches the client.
func InternalError(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusInternalServerError,
			Name:    NameInternalError,
			Message: "an internal error occurred",
		}
	}

	return nil
}

// GetCode returns the HTTP status of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetName returns the stable failure name of an error interface.
func GetName(err error) string {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Name
	}

	return NameInternalError
}

// GetFields returns accumulated field errors, or nil when the error carries none.
func GetFields(err error) map[string][]string {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Fields
	}

	return nil
}

// Is reports whether err is a Failure with the given name.
func Is(err error, name string) bool {
	var fail *Failure

	return errors.As(err, &fail) && fail.Name == name
}
