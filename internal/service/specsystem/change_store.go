package specsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"specboard/internal/config"
	"specboard/internal/domain"
	models "specboard/internal/domain/models/specsystem"
	specRepo "specboard/internal/domain/repositories/specsystem"
	"specboard/internal/domain/services"
	specSvc "specboard/internal/domain/services/specsystem"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// changeStore implements the ChangeStore interface
type changeStore struct {
	repo     specRepo.FieldChangeRepository
	identity services.IdentityProvider
	logger   *slog.Logger
}

// NewChangeStore creates a change store that attributes writes to the current identity
func NewChangeStore(
	repo specRepo.FieldChangeRepository,
	identity services.IdentityProvider,
	logger *slog.Logger,
) specSvc.ChangeStore {
	return &changeStore{
		repo:     repo,
		identity: identity,
		logger:   logger,
	}
}

// Create records a pending change authored by the current identity.
// Without an identity nothing is written.
func (s *changeStore) Create(ctx context.Context, in *specSvc.CreateFieldChangeInput) (*models.FieldChange, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateCreateInput(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now().UTC()
	change := &models.FieldChange{
		FeatureSpecID:     in.FeatureSpecID,
		FieldPath:         in.FieldPath,
		FieldType:         in.FieldType,
		OldValue:          in.OldValue,
		NewValue:          in.NewValue,
		ChangeDescription: in.ChangeDescription,
		AuthorID:          actor.ID,
		AuthorEmail:       actor.Email,
		Status:            models.ChangeStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, change); err != nil {
		return nil, err
	}

	s.logger.Debug("field change recorded",
		"change_id", change.ID,
		"feature_spec_id", change.FeatureSpecID,
		"field_path", change.FieldPath,
		"author_id", change.AuthorID,
	)
	return change, nil
}

// Get retrieves a change by ID
func (s *changeStore) Get(ctx context.Context, changeID string) (*models.FieldChange, error) {
	if changeID == "" {
		return nil, &domain.ValidationError{Message: "change id is required"}
	}
	return s.repo.GetByID(ctx, changeID)
}

// ListByDocument lists every change of a feature spec, newest first
func (s *changeStore) ListByDocument(ctx context.Context, featureSpecID string) ([]*models.FieldChange, error) {
	return s.repo.List(ctx, models.FieldChangeFilter{FeatureSpecID: featureSpecID})
}

// ListByField lists changes with an exact field path match, newest first
func (s *changeStore) ListByField(ctx context.Context, featureSpecID, fieldPath string) ([]*models.FieldChange, error) {
	return s.repo.List(ctx, models.FieldChangeFilter{FeatureSpecID: featureSpecID, FieldPath: fieldPath})
}

// ListByPrefix lists changes whose field path starts with prefix, newest first
func (s *changeStore) ListByPrefix(ctx context.Context, featureSpecID, prefix string) ([]*models.FieldChange, error) {
	return s.repo.List(ctx, models.FieldChangeFilter{FeatureSpecID: featureSpecID, PathPrefix: prefix})
}

// ListAccepted lists accepted changes for a field path, newest first
func (s *changeStore) ListAccepted(ctx context.Context, featureSpecID, fieldPath string) ([]*models.FieldChange, error) {
	return s.repo.List(ctx, models.FieldChangeFilter{
		FeatureSpecID: featureSpecID,
		FieldPath:     fieldPath,
		Status:        models.ChangeStatusAccepted,
	})
}

// ListPending lists pending changes for a field path, newest first
func (s *changeStore) ListPending(ctx context.Context, featureSpecID, fieldPath string) ([]*models.FieldChange, error) {
	return s.repo.List(ctx, models.FieldChangeFilter{
		FeatureSpecID: featureSpecID,
		FieldPath:     fieldPath,
		Status:        models.ChangeStatusPending,
	})
}

// UpdateStatus moves a change to accepted or rejected and stamps the
// matching timestamp and actor. Ownership is not checked here.
func (s *changeStore) UpdateStatus(ctx context.Context, changeID string, status models.ChangeStatus) (*models.FieldChange, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if !status.IsDecision() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("status must be %q or %q, got %q", models.ChangeStatusAccepted, models.ChangeStatusRejected, status),
		}
	}

	change, err := s.repo.UpdateStatus(ctx, models.StatusTransition{
		ChangeID: changeID,
		Status:   status,
		Actor:    actor.ID,
		At:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("field change status updated",
		"change_id", change.ID,
		"status", change.Status,
		"actor_id", actor.ID,
	)
	return change, nil
}

func validateCreateInput(in *specSvc.CreateFieldChangeInput) error {
	if in == nil {
		return fmt.Errorf("input is required")
	}
	return validation.ValidateStruct(in,
		validation.Field(&in.FeatureSpecID, validation.Required),
		validation.Field(&in.FieldPath,
			validation.Required,
			validation.Length(1, config.MaxFieldPathLength),
		),
		validation.Field(&in.FieldType,
			validation.Required,
			validation.In(models.FieldTypeString, models.FieldTypeArray, models.FieldTypeObject),
		),
		validation.Field(&in.ChangeDescription, validation.Length(0, config.MaxChangeDescriptionLength)),
	)
}
