package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeValidation        ErrorType = "VALIDATION"
	ErrorTypeInternal          ErrorType = "INTERNAL"
	ErrorTypeFileRead          ErrorType = "FILE_READ"
	ErrorTypeStaging           ErrorType = "STAGING"
	ErrorTypeDanglingReference ErrorType = "DANGLING_REFERENCE"
	ErrorTypeReferenceCycle    ErrorType = "REFERENCE_CYCLE"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether any error in err's chain is an *Error of type t.
func Is(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Code returns the HTTP status for err, defaulting to 500.
func Code(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// FileRead reports that the bytes of path could not be obtained.
func FileRead(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeFileRead,
		Message: fmt.Sprintf("reading %s", path),
		Code:    http.StatusUnprocessableEntity,
		Details: map[string]string{"path": path},
		Err:     err,
	}
}

// StagingFailure wraps the error that prevented name from being staged.
func StagingFailure(name string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStaging,
		Message: fmt.Sprintf("staging %s", name),
		Code:    Code(err),
		Details: map[string]string{"name": name},
		Err:     err,
	}
}

func DanglingReference(label string) *Error {
	return &Error{
		Type:    ErrorTypeDanglingReference,
		Message: fmt.Sprintf("reference %q does not point at a commit", label),
		Code:    http.StatusNotFound,
		Details: map[string]string{"label": label},
	}
}

func ReferenceCycle(label string, hops int) *Error {
	return &Error{
		Type:    ErrorTypeReferenceCycle,
		Message: fmt.Sprintf("reference %q did not resolve within %d hops", label, hops),
		Code:    http.StatusInternalServerError,
		Details: map[string]any{"label": label, "hops": hops},
	}
}
