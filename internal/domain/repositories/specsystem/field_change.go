package specsystem

import (
	"context"
	"time"

	models "specboard/internal/domain/models/specsystem"
)

// FieldChangeRepository is the record store for field changes.
// Every method is a single statement, so a failed call writes nothing.
type FieldChangeRepository interface {
	// Create inserts a change and fills in its ID and timestamps
	Create(ctx context.Context, change *models.FieldChange) error

	// GetByID retrieves a change by ID
	GetByID(ctx context.Context, id string) (*models.FieldChange, error)

	// List returns the changes matching filter, newest first
	List(ctx context.Context, filter models.FieldChangeFilter) ([]*models.FieldChange, error)

	// UpdateStatus applies a decision to a pending change and returns it.
	// A change that is no longer pending yields a *domain.ConflictError.
	UpdateStatus(ctx context.Context, t models.StatusTransition) (*models.FieldChange, error)

	// MarkApplied records that an accepted change was written into its feature spec
	MarkApplied(ctx context.Context, id string, at time.Time) error
}
