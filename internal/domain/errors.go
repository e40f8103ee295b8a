package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates there is no authenticated identity
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means no current identity could be resolved.
	ErrUnauthorized = errors.New("unauthenticated")
	ErrForbidden    = errors.New("forbidden")
	// ErrStorageUnavailable wraps transport/backend failures from the record store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrReconciliation means an accepted change could not be written into its document.
	ErrReconciliation = errors.New("reconciliation failed")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (feature_spec, field_change)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ReconciliationError reports that an accepted change was not applied to the
// live document. The change keeps its accepted status; the document can be
// brought up to date later by re-applying the change.
type ReconciliationError struct {
	ChangeID      string
	FeatureSpecID string
	FieldPath     string
	Err           error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("apply change %s to %s at %q: %v", e.ChangeID, e.FeatureSpecID, e.FieldPath, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrReconciliation
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}

func (e *ReconciliationError) StatusCode() int {
	return http.StatusConflict
}

// StorageError wraps err so that it matches ErrStorageUnavailable while keeping
// the driver message intact.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
