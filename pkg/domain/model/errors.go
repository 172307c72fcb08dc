package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds. Every domain error wraps exactly one of them.
var (
	ErrNotFound         = goerr.New("not found")
	ErrConflict         = goerr.New("conflict")
	ErrPermissionDenied = goerr.New("permission denied")
	ErrValidation       = goerr.New("validation failed")
)

var (
	ErrTaskNotFound    = goerr.Wrap(ErrNotFound, "task not found")
	ErrRequestNotFound = goerr.Wrap(ErrNotFound, "request not found")
	ErrUserNotFound    = goerr.Wrap(ErrNotFound, "user not found")

	ErrDuplicateTaskKey        = goerr.Wrap(ErrConflict, "task business key already exists")
	ErrDuplicatePendingRequest = goerr.Wrap(ErrConflict, "a pending request of this kind already exists")
	ErrRequestAlreadyResolved  = goerr.Wrap(ErrConflict, "request is already resolved")
	ErrInvalidTransition       = goerr.Wrap(ErrConflict, "invalid task status transition")
	ErrTaskCompleted           = goerr.Wrap(ErrConflict, "task is already completed")

	ErrNotTaskOwner       = goerr.Wrap(ErrPermissionDenied, "actor does not own the task")
	ErrRoleRequired       = goerr.Wrap(ErrPermissionDenied, "actor role is not allowed")
	ErrAccountDeactivated = goerr.Wrap(ErrPermissionDenied, "account is deactivated")
	ErrUnauthenticated    = goerr.Wrap(ErrPermissionDenied, "no actor in context")

	ErrInvalidBusinessKey = goerr.Wrap(ErrValidation, "business key must be exactly five digits")
	ErrInvalidPayload     = goerr.Wrap(ErrValidation, "invalid request payload")
	ErrInvalidArgument    = goerr.Wrap(ErrValidation, "invalid argument")
)

// ErrorKind classifies an error for callers at the transport boundary
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindConflict         ErrorKind = "CONFLICT"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindValidation       ErrorKind = "VALIDATION_FAILED"
	KindInternal         ErrorKind = "INTERNAL"
)

// KindOf returns the kind of err, or KindInternal when it is not a domain error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// Context keys for error values
const (
	TaskIDKey      = "task_id"
	TaskKeyKey     = "task_key"
	RequestIDKey   = "request_id"
	RequestKindKey = "request_kind"
	UserIDKey      = "user_id"
	StatusKey      = "status"
)
