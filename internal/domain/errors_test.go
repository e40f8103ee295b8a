package domain

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestReconciliationError(t *testing.T) {
	cause := errors.New("feature spec gone")
	err := error(&ReconciliationError{
		ChangeID:      "chg-1",
		FeatureSpecID: "spec-1",
		FieldPath:     "featureName",
		Err:           cause,
	})

	if !errors.Is(err, ErrReconciliation) {
		t.Error("errors.Is(err, ErrReconciliation) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("ReconciliationError should unwrap to its cause")
	}

	var recErr *ReconciliationError
	if !errors.As(err, &recErr) || recErr.FieldPath != "featureName" {
		t.Errorf("errors.As failed, got %+v", recErr)
	}
	if !strings.Contains(err.Error(), "chg-1") {
		t.Errorf("message %q should mention change id", err.Error())
	}
}

func TestStorageError(t *testing.T) {
	driverErr := errors.New("connection refused")
	err := StorageError("insert field change", driverErr)

	if !errors.Is(err, ErrStorageUnavailable) {
		t.Error("StorageError should match ErrStorageUnavailable")
	}
	if !errors.Is(err, driverErr) {
		t.Error("StorageError should keep the driver error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("message %q should propagate driver message", err.Error())
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    HTTPError
		target error
		status int
	}{
		{"not found", &NotFoundError{Message: "x"}, ErrNotFound, http.StatusNotFound},
		{"validation", &ValidationError{Message: "x"}, ErrValidation, http.StatusBadRequest},
		{"unauthorized", &UnauthorizedError{Message: "x"}, ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", &ForbiddenError{Message: "x"}, ErrForbidden, http.StatusForbidden},
		{"conflict", &ConflictError{Message: "x"}, ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%T, %v) = false", tt.err, tt.target)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
		})
	}
}
