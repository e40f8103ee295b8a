package specsystem

import (
	"context"

	"specboard/internal/domain/models/specsystem"
)

// ChangeStore records field changes on behalf of the current identity.
type ChangeStore interface {
	// Create records a pending change authored by the current identity
	Create(ctx context.Context, in *CreateFieldChangeInput) (*specsystem.FieldChange, error)

	// Get retrieves a change by ID
	Get(ctx context.Context, changeID string) (*specsystem.FieldChange, error)

	// ListByDocument lists every change of a feature spec, newest first
	ListByDocument(ctx context.Context, featureSpecID string) ([]*specsystem.FieldChange, error)

	// ListByField lists changes with an exact field path match, newest first
	ListByField(ctx context.Context, featureSpecID, fieldPath string) ([]*specsystem.FieldChange, error)

	// ListByPrefix lists changes whose field path starts with prefix, newest first
	ListByPrefix(ctx context.Context, featureSpecID, prefix string) ([]*specsystem.FieldChange, error)

	// ListAccepted lists accepted changes for a field path, newest first
	ListAccepted(ctx context.Context, featureSpecID, fieldPath string) ([]*specsystem.FieldChange, error)

	// ListPending lists pending changes for a field path, newest first
	ListPending(ctx context.Context, featureSpecID, fieldPath string) ([]*specsystem.FieldChange, error)

	// UpdateStatus moves a change to accepted or rejected on behalf of the current identity
	UpdateStatus(ctx context.Context, changeID string, status specsystem.ChangeStatus) (*specsystem.FieldChange, error)
}

// CreateFieldChangeInput is the data a new change is created from.
// Author and status are assigned by the store.
type CreateFieldChangeInput struct {
	FeatureSpecID     string
	FieldPath         string
	FieldType         specsystem.FieldType
	OldValue          interface{}
	NewValue          interface{}
	ChangeDescription string
}

// Reconciler writes accepted changes into the live feature spec.
type Reconciler interface {
	// Apply writes change.NewValue at change.FieldPath and marks the change applied.
	// Failures are returned as *domain.ReconciliationError.
	Apply(ctx context.Context, change *specsystem.FieldChange) (*specsystem.FeatureSpec, error)
}

// SuggestionService is the change-suggestion protocol: proposing field edits,
// deciding on them, and querying them.
type SuggestionService interface {
	// ProposeFieldEdit records a pending change. Returns (nil, nil) when the
	// old and new values are structurally equal.
	ProposeFieldEdit(ctx context.Context, req *ProposeFieldEditRequest) (*specsystem.FieldChange, error)

	// Decide accepts or rejects a change. On accept the new value is reconciled
	// into the feature spec after the status is stored. A reconciliation failure
	// returns both a result (Applied=false) and a *domain.ReconciliationError.
	Decide(ctx context.Context, changeID string, decision specsystem.ChangeStatus) (*DecisionResult, error)

	// Reapply reconciles an already accepted change again
	Reapply(ctx context.Context, changeID string) (*DecisionResult, error)

	// GetChange retrieves a change by ID
	GetChange(ctx context.Context, changeID string) (*specsystem.FieldChange, error)

	// ListChanges lists a feature spec's changes, newest first
	ListChanges(ctx context.Context, featureSpecID string, q ChangeQuery) ([]*specsystem.FieldChange, error)

	// Conflicts lists field paths that have more than one pending change
	Conflicts(ctx context.Context, featureSpecID string) ([]specsystem.ConflictGroup, error)

	// LatestAccepted returns the newest accepted change for a field path, or nil
	LatestAccepted(ctx context.Context, featureSpecID, fieldPath string) (*specsystem.FieldChange, error)
}

// ProposeFieldEditRequest represents a field edit to record as a suggestion.
// When OldValueSet is false the current value at FieldPath is used as the baseline.
type ProposeFieldEditRequest struct {
	FeatureSpecID     string
	FieldPath         string
	OldValue          interface{}
	OldValueSet       bool
	NewValue          interface{}
	ChangeDescription string
}

// ChangeQuery filters ListChanges. FieldPath and Prefix are mutually exclusive.
type ChangeQuery struct {
	FieldPath string
	Prefix    string
	Status    specsystem.ChangeStatus
}

// DecisionResult is the outcome of Decide or Reapply.
type DecisionResult struct {
	Change      *specsystem.FieldChange `json:"change"`
	Applied     bool                    `json:"applied"`
	FeatureSpec *specsystem.FeatureSpec `json:"featureSpec,omitempty"`
	// ReconcileError is set when the change is accepted but was not applied
	ReconcileError string `json:"reconcileError,omitempty"`
}
