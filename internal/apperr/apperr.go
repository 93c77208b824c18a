// Package apperr defines the coded errors surfaced to API clients.
package apperr

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeDuplicateEmail        Code = "DUPLICATE_EMAIL"
	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeTokenInvalid          Code = "TOKEN_INVALID"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeNotFound              Code = "NOT_FOUND"
	CodeUnresolvedSubtasks    Code = "UNRESOLVED_SUBTASKS"
	CodeAlreadyCompleted      Code = "ALREADY_COMPLETED"
	CodeHasIncompleteSubtasks Code = "HAS_INCOMPLETE_SUBTASKS"
)

// Error is a client-facing failure with an optional set of per-field
// messages.
type Error struct {
	Code    Code
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error carrying the same code, so sentinel values below
// work with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation            = &Error{Code: CodeValidation}
	ErrDuplicateEmail        = &Error{Code: CodeDuplicateEmail}
	ErrInvalidCredentials    = &Error{Code: CodeInvalidCredentials}
	ErrTokenInvalid          = &Error{Code: CodeTokenInvalid}
	ErrUnauthenticated       = &Error{Code: CodeUnauthenticated}
	ErrForbidden             = &Error{Code: CodeForbidden}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrUnresolvedSubtasks    = &Error{Code: CodeUnresolvedSubtasks}
	ErrAlreadyCompleted      = &Error{Code: CodeAlreadyCompleted}
	ErrHasIncompleteSubtasks = &Error{Code: CodeHasIncompleteSubtasks}
)

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation creates a validation error from per-field messages.
func Validation(fields map[string][]string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: summarize(fields),
		Fields:  fields,
	}
}

// Field creates a single-field error with the given code.
func Field(code Code, field, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Fields:  map[string][]string{field: {message}},
	}
}

// CodeOf extracts the code from err, or CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HTTPStatus maps a code to the status the API responds with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeDuplicateEmail, CodeInvalidCredentials,
		CodeAlreadyCompleted, CodeHasIncompleteSubtasks:
		return http.StatusUnprocessableEntity
	case CodeTokenInvalid, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnresolvedSubtasks:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// summarize picks a headline message the way form validators usually do:
// the first message, plus a count of the rest.
func summarize(fields map[string][]string) string {
	total := 0
	first := ""
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, msg := range fields[key] {
			if first == "" {
				first = msg
			}
			total++
		}
	}
	switch {
	case total == 0:
		return "The given data was invalid."
	case total == 1:
		return first
	case total == 2:
		return first + " (and 1 more error)"
	default:
		return first + " (and " + strconv.Itoa(total-1) + " more errors)"
	}
}
