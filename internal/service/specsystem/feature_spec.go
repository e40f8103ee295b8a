package specsystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"specboard/internal/config"
	"specboard/internal/domain"
	"specboard/internal/domain/models"
	specModels "specboard/internal/domain/models/specsystem"
	"specboard/internal/domain/repositories"
	specRepo "specboard/internal/domain/repositories/specsystem"
	"specboard/internal/domain/services"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/fieldschema"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// featureSpecService implements the FeatureSpecService interface
type featureSpecService struct {
	specRepo   specRepo.FeatureSpecRepository
	txManager  repositories.TransactionManager
	registry   *fieldschema.Registry
	identity   services.IdentityProvider
	editPolicy services.EditPolicy
	logger     *slog.Logger
}

// NewFeatureSpecService creates a new feature spec service
func NewFeatureSpecService(
	specRepo specRepo.FeatureSpecRepository,
	txManager repositories.TransactionManager,
	registry *fieldschema.Registry,
	identity services.IdentityProvider,
	editPolicy services.EditPolicy,
	logger *slog.Logger,
) specSvc.FeatureSpecService {
	return &featureSpecService{
		specRepo:   specRepo,
		txManager:  txManager,
		registry:   registry,
		identity:   identity,
		editPolicy: editPolicy,
		logger:     logger,
	}
}

// CreateFeatureSpec creates a Draft spec owned by the current identity.
// Top-level content keys must be declared fields.
func (s *featureSpecService) CreateFeatureSpec(ctx context.Context, req *specSvc.CreateFeatureSpecRequest) (*specModels.FeatureSpecView, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	content, err := NormalizeValue(map[string]interface{}(req.Content))
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("content: %v", err)}
	}
	fields, _ := content.(map[string]interface{})
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["featureName"] = req.FeatureName

	now := time.Now().UTC()
	spec := &specModels.FeatureSpec{
		AuthorID:    actor.ID,
		AuthorEmail: actor.Email,
		Status:      specModels.SpecStatusDraft,
		Version:     1,
		Content:     models.JSONMap(fields),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.specRepo.Create(ctx, spec); err != nil {
		return nil, err
	}

	s.logger.Info("feature spec created",
		"feature_spec_id", spec.ID,
		"author_id", spec.AuthorID,
	)
	return &specModels.FeatureSpecView{FeatureSpec: spec, IsOwner: true}, nil
}

// GetFeatureSpec retrieves a spec. Any authenticated user may read it.
func (s *featureSpecService) GetFeatureSpec(ctx context.Context, id string) (*specModels.FeatureSpecView, error) {
	spec, err := s.specRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, spec), nil
}

// ListMyFeatureSpecs lists specs owned by the current identity
func (s *featureSpecService) ListMyFeatureSpecs(ctx context.Context) ([]specModels.FeatureSpec, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return s.specRepo.ListByAuthor(ctx, actor.ID)
}

// UpdateFeatureSpec changes the spec status; owner only
func (s *featureSpecService) UpdateFeatureSpec(ctx context.Context, id string, req *specSvc.UpdateFeatureSpecRequest) (*specModels.FeatureSpecView, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Status == nil {
		return nil, &domain.ValidationError{Message: "nothing to update"}
	}
	if !req.Status.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown status %q", *req.Status)}
	}

	spec, err := s.specRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.editPolicy.CanEdit(ctx, actor, spec); err != nil {
		return nil, err
	}

	if spec.Status != *req.Status {
		spec.Status = *req.Status
		spec.UpdatedAt = time.Now().UTC()
		if err := s.specRepo.UpdateStatus(ctx, spec); err != nil {
			return nil, err
		}
		s.logger.Info("feature spec status changed",
			"feature_spec_id", spec.ID,
			"status", spec.Status,
		)
	}

	return &specModels.FeatureSpecView{FeatureSpec: spec, IsOwner: true}, nil
}

// EditField writes a value at a field path without recording a suggestion; owner only
func (s *featureSpecService) EditField(ctx context.Context, id string, req *specSvc.EditFieldRequest) (*specModels.FeatureSpecView, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &domain.ValidationError{Message: "request is required"}
	}

	path, err := specModels.ParseFieldPath(req.FieldPath)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if err := s.registry.Validate(path); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if len(req.Value) == 0 {
		return nil, &domain.ValidationError{Message: "value is required"}
	}
	var value interface{}
	if err := json.Unmarshal(req.Value, &value); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("value is not valid JSON: %v", err)}
	}

	var spec *specModels.FeatureSpec
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.specRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.editPolicy.CanEdit(txCtx, actor, current); err != nil {
			return err
		}

		content, err := ApplyAtPath(current.Content, path, value)
		if err != nil {
			return &domain.ValidationError{Message: err.Error()}
		}
		current.Content = content
		current.Version++
		current.UpdatedAt = time.Now().UTC()

		if err := s.specRepo.UpdateContent(txCtx, current); err != nil {
			return err
		}
		spec = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feature spec field edited",
		"feature_spec_id", spec.ID,
		"field_path", req.FieldPath,
		"version", spec.Version,
	)
	return &specModels.FeatureSpecView{FeatureSpec: spec, IsOwner: true}, nil
}

func (s *featureSpecService) view(ctx context.Context, spec *specModels.FeatureSpec) *specModels.FeatureSpecView {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		s.logger.Warn("identity lookup failed", "error", err)
	}
	return &specModels.FeatureSpecView{FeatureSpec: spec, IsOwner: spec.IsOwner(actor)}
}

func (s *featureSpecService) validateCreateRequest(req *specSvc.CreateFeatureSpecRequest) error {
	if req == nil {
		return &domain.ValidationError{Message: "request is required"}
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.FeatureName,
			validation.Required,
			validation.Length(1, config.MaxSpecNameLength),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	for key := range req.Content {
		path, err := specModels.ParseFieldPath(key)
		if err == nil && len(path.Segments) == 1 {
			err = s.registry.Validate(path)
		} else if err == nil {
			err = fmt.Errorf("content key %q must be a top-level field", key)
		}
		if err != nil {
			return &domain.ValidationError{Message: err.Error()}
		}
	}
	return nil
}
