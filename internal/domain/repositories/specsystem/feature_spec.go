package specsystem

import (
	"context"

	models "specboard/internal/domain/models/specsystem"
)

// FeatureSpecRepository defines data access operations for feature specs
type FeatureSpecRepository interface {
	// Create inserts a feature spec; ID, CreatedAt and UpdatedAt are assigned by the store
	Create(ctx context.Context, spec *models.FeatureSpec) error

	// GetByID retrieves a feature spec by ID
	GetByID(ctx context.Context, id string) (*models.FeatureSpec, error)

	// GetByIDForUpdate retrieves a feature spec and locks its row until the
	// surrounding transaction ends. Must be called inside TransactionManager.ExecTx.
	GetByIDForUpdate(ctx context.Context, id string) (*models.FeatureSpec, error)

	// ListByAuthor lists feature specs owned by a user, most recently updated first
	ListByAuthor(ctx context.Context, authorID string) ([]models.FeatureSpec, error)

	// UpdateContent writes spec.Content and spec.Version
	UpdateContent(ctx context.Context, spec *models.FeatureSpec) error

	// UpdateStatus writes spec.Status
	UpdateStatus(ctx context.Context, spec *models.FeatureSpec) error
}
