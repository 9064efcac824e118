package notes

import (
	"errors"
	"fmt"

	"github.com/roach88/notes/internal/model"
)

// Error is a caller-visible, recoverable operation failure.
//
// Failures that indicate a lower-layer integrity problem (corrupt or
// malformed records, database errors) are never reported as *Error; they are
// returned as wrapped errors and abort the operation.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the human-readable reason shown to the caller.
	Message string

	// ID is the note the operation targeted.
	ID uint32

	// Principal is the caller that attempted the operation.
	Principal model.Principal
}

// ErrorCode categorizes operation failures.
type ErrorCode string

const (
	// ErrCodeNotFound indicates no note with the requested id exists.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodePermissionDenied indicates the caller is not the note's owner.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrCodeAlreadyShared indicates the share target can already read the note.
	ErrCodeAlreadyShared ErrorCode = "ALREADY_SHARED"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrNotFound         = &Error{Code: ErrCodeNotFound}
	ErrPermissionDenied = &Error{Code: ErrCodePermissionDenied}
	ErrAlreadyShared    = &Error{Code: ErrCodeAlreadyShared}
)

// ErrInvalidPrincipal is returned when an operation is called with an empty
// caller or target principal.
var ErrInvalidPrincipal = errors.New("notes: empty principal")

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s (id=%d)", e.Code, e.Message, e.ID)
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsNotFound returns true if err is a NotFound failure.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsPermissionDenied returns true if err is a PermissionDenied failure.
func IsPermissionDenied(err error) bool {
	return hasCode(err, ErrCodePermissionDenied)
}

// IsAlreadyShared returns true if err is an AlreadyShared failure.
func IsAlreadyShared(err error) bool {
	return hasCode(err, ErrCodeAlreadyShared)
}

// CodeOf returns the failure code of err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newError(code ErrorCode, id uint32, caller model.Principal, message string) *Error {
	return &Error{Code: code, Message: message, ID: id, Principal: caller}
}
