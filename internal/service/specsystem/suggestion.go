package specsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"specboard/internal/config"
	"specboard/internal/domain"
	"specboard/internal/domain/models"
	specModels "specboard/internal/domain/models/specsystem"
	specRepo "specboard/internal/domain/repositories/specsystem"
	"specboard/internal/domain/services"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/fieldschema"
	"specboard/internal/metrics"
	"specboard/internal/realtime"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// suggestionService implements the SuggestionService interface
type suggestionService struct {
	specRepo   specRepo.FeatureSpecRepository
	store      specSvc.ChangeStore
	reconciler specSvc.Reconciler
	registry   *fieldschema.Registry
	identity   services.IdentityProvider
	policy     services.DecisionPolicy
	notifier   realtime.Notifier
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewSuggestionService creates the change-suggestion service.
// A nil policy permits every authenticated decision; a nil notifier drops events.
func NewSuggestionService(
	specRepo specRepo.FeatureSpecRepository,
	store specSvc.ChangeStore,
	reconciler specSvc.Reconciler,
	registry *fieldschema.Registry,
	identity services.IdentityProvider,
	policy services.DecisionPolicy,
	notifier realtime.Notifier,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) specSvc.SuggestionService {
	if notifier == nil {
		notifier = realtime.NewNoopNotifier()
	}
	return &suggestionService{
		specRepo:   specRepo,
		store:      store,
		reconciler: reconciler,
		registry:   registry,
		identity:   identity,
		policy:     policy,
		notifier:   notifier,
		metrics:    recorder,
		logger:     logger,
	}
}

// ProposeFieldEdit records a pending change for a field edit.
// Equal old and new values are not an error: nothing is recorded and
// (nil, nil) is returned.
func (s *suggestionService) ProposeFieldEdit(ctx context.Context, req *specSvc.ProposeFieldEditRequest) (*specModels.FieldChange, error) {
	if err := s.validateProposal(req); err != nil {
		return nil, err
	}
	path, err := s.parsePath(req.FieldPath)
	if err != nil {
		return nil, err
	}

	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}

	spec, err := s.specRepo.GetByID(ctx, req.FeatureSpecID)
	if err != nil {
		return nil, err
	}

	oldValue := req.OldValue
	if !req.OldValueSet {
		oldValue, _ = GetAtPath(spec.Content, path)
	}
	if oldValue, err = NormalizeValue(oldValue); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("oldValue: %v", err)}
	}
	newValue, err := NormalizeValue(req.NewValue)
	if err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("newValue: %v", err)}
	}

	if ValuesEqual(oldValue, newValue) {
		s.logger.Debug("field edit unchanged, no suggestion recorded",
			"feature_spec_id", spec.ID,
			"field_path", req.FieldPath,
		)
		return nil, nil
	}

	if _, err := ApplyAtPath(spec.Content, path, newValue); err != nil {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("field path %q cannot be applied to the current content: %v", req.FieldPath, err),
		}
	}

	description := req.ChangeDescription
	if description == "" {
		description = DefaultChangeDescription(req.FieldPath, oldValue, newValue)
		if runes := []rune(description); len(runes) > config.MaxChangeDescriptionLength {
			description = string(runes[:config.MaxChangeDescriptionLength])
		}
	}

	change, err := s.store.Create(ctx, &specSvc.CreateFieldChangeInput{
		FeatureSpecID:     spec.ID,
		FieldPath:         req.FieldPath,
		FieldType:         ClassifyFieldType(newValue),
		OldValue:          oldValue,
		NewValue:          newValue,
		ChangeDescription: description,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ChangeProposed(string(change.FieldType))
	s.publish(ctx, realtime.NewChangeEvent(realtime.EventProposed, change, actor.ID))

	s.logger.Info("field change proposed",
		"change_id", change.ID,
		"feature_spec_id", change.FeatureSpecID,
		"field_path", change.FieldPath,
		"field_type", change.FieldType,
		"author_id", change.AuthorID,
	)
	return change, nil
}

// Decide accepts or rejects a change. The status is stored before an
// accepted change is reconciled, and a reconciliation failure leaves the
// change accepted.
func (s *suggestionService) Decide(ctx context.Context, changeID string, decision specModels.ChangeStatus) (*specSvc.DecisionResult, error) {
	if !decision.IsDecision() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("decision must be %q or %q", specModels.ChangeStatusAccepted, specModels.ChangeStatusRejected),
		}
	}

	actor, change, spec, err := s.authorize(ctx, changeID)
	if err != nil {
		return nil, err
	}

	if change.IsTerminal() {
		return alreadyDecided(change, decision)
	}

	updated, err := s.store.UpdateStatus(ctx, change.ID, decision)
	if errors.Is(err, domain.ErrConflict) {
		// Decided concurrently between the read above and the update
		current, getErr := s.store.Get(ctx, change.ID)
		if getErr != nil {
			return nil, getErr
		}
		return alreadyDecided(current, decision)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ChangeDecided(string(decision))
	s.publish(ctx, realtime.NewChangeEvent(realtime.DecisionEvent(decision), updated, actor.ID))
	s.logger.Info("field change decided",
		"change_id", updated.ID,
		"feature_spec_id", spec.ID,
		"decision", decision,
		"actor_id", actor.ID,
	)

	result := &specSvc.DecisionResult{Change: updated}
	if decision != specModels.ChangeStatusAccepted {
		return result, nil
	}
	return s.reconcile(ctx, actor, result)
}

// alreadyDecided answers a decision on a change that is no longer pending.
// Repeating the stored decision is a no-op; a different one is a conflict.
func alreadyDecided(change *specModels.FieldChange, decision specModels.ChangeStatus) (*specSvc.DecisionResult, error) {
	if change.Status != decision {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("change %s is already %s", change.ID, change.Status),
			ResourceType: "field_change",
			ResourceID:   change.ID,
		}
	}
	return &specSvc.DecisionResult{Change: change, Applied: change.AppliedAt != nil}, nil
}

// Reapply reconciles an accepted change again, e.g. after a failed first attempt.
func (s *suggestionService) Reapply(ctx context.Context, changeID string) (*specSvc.DecisionResult, error) {
	actor, change, _, err := s.authorize(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if change.Status != specModels.ChangeStatusAccepted {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("only accepted changes can be applied; change %s is %s", change.ID, change.Status),
		}
	}
	return s.reconcile(ctx, actor, &specSvc.DecisionResult{Change: change})
}

// GetChange retrieves a change by ID
func (s *suggestionService) GetChange(ctx context.Context, changeID string) (*specModels.FieldChange, error) {
	return s.store.Get(ctx, changeID)
}

// ListChanges lists a feature spec's changes, newest first
func (s *suggestionService) ListChanges(ctx context.Context, featureSpecID string, q specSvc.ChangeQuery) ([]*specModels.FieldChange, error) {
	if q.FieldPath != "" && q.Prefix != "" {
		return nil, &domain.ValidationError{Message: "field_path and prefix cannot be combined"}
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown status %q", q.Status)}
	}
	if _, err := s.specRepo.GetByID(ctx, featureSpecID); err != nil {
		return nil, err
	}

	var changes []*specModels.FieldChange
	var err error
	switch {
	case q.FieldPath != "" && q.Status == specModels.ChangeStatusAccepted:
		return s.store.ListAccepted(ctx, featureSpecID, q.FieldPath)
	case q.FieldPath != "" && q.Status == specModels.ChangeStatusPending:
		return s.store.ListPending(ctx, featureSpecID, q.FieldPath)
	case q.FieldPath != "":
		changes, err = s.store.ListByField(ctx, featureSpecID, q.FieldPath)
	case q.Prefix != "":
		changes, err = s.store.ListByPrefix(ctx, featureSpecID, q.Prefix)
	default:
		changes, err = s.store.ListByDocument(ctx, featureSpecID)
	}
	if err != nil {
		return nil, err
	}

	if q.Status != "" {
		changes = FilterByStatus(changes, q.Status)
	}
	return changes, nil
}

// Conflicts lists field paths with more than one pending change
func (s *suggestionService) Conflicts(ctx context.Context, featureSpecID string) ([]specModels.ConflictGroup, error) {
	if _, err := s.specRepo.GetByID(ctx, featureSpecID); err != nil {
		return nil, err
	}
	changes, err := s.store.ListByDocument(ctx, featureSpecID)
	if err != nil {
		return nil, err
	}
	return ConflictingPending(changes), nil
}

// LatestAccepted returns the newest accepted change for a field path, or nil
func (s *suggestionService) LatestAccepted(ctx context.Context, featureSpecID, fieldPath string) (*specModels.FieldChange, error) {
	if _, err := s.parsePath(fieldPath); err != nil {
		return nil, err
	}
	changes, err := s.store.ListAccepted(ctx, featureSpecID, fieldPath)
	if err != nil {
		return nil, err
	}
	return LatestAccepted(changes, fieldPath), nil
}

// authorize loads a change and its feature spec and checks the decision policy
func (s *suggestionService) authorize(ctx context.Context, changeID string) (*models.Identity, *specModels.FieldChange, *specModels.FeatureSpec, error) {
	actor, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	change, err := s.store.Get(ctx, changeID)
	if err != nil {
		return nil, nil, nil, err
	}

	spec, err := s.specRepo.GetByID(ctx, change.FeatureSpecID)
	if err != nil {
		return nil, nil, nil, err
	}

	if s.policy != nil {
		if err := s.policy.CanDecide(ctx, actor, spec, change); err != nil {
			s.logger.Warn("field change decision denied",
				"change_id", change.ID,
				"feature_spec_id", spec.ID,
				"actor_id", actor.ID,
			)
			return nil, nil, nil, err
		}
	}

	return actor, change, spec, nil
}

// reconcile applies result.Change and fills in the outcome. A failure is
// returned as *domain.ReconciliationError together with the result.
func (s *suggestionService) reconcile(ctx context.Context, actor *models.Identity, result *specSvc.DecisionResult) (*specSvc.DecisionResult, error) {
	spec, err := s.reconciler.Apply(ctx, result.Change)
	if err != nil {
		var recErr *domain.ReconciliationError
		if !errors.As(err, &recErr) {
			recErr = &domain.ReconciliationError{
				ChangeID:      result.Change.ID,
				FeatureSpecID: result.Change.FeatureSpecID,
				FieldPath:     result.Change.FieldPath,
				Err:           err,
			}
		}

		s.metrics.Reconciled(metrics.ReconcileFailed)
		s.logger.Error("accepted change not applied",
			"change_id", recErr.ChangeID,
			"feature_spec_id", recErr.FeatureSpecID,
			"field_path", recErr.FieldPath,
			"error", recErr.Err,
		)

		result.Applied = false
		result.ReconcileError = recErr.Error()
		return result, recErr
	}

	s.metrics.Reconciled(metrics.ReconcileApplied)
	event := realtime.NewChangeEvent(realtime.EventApplied, result.Change, actor.ID)
	event.Version = spec.Version
	s.publish(ctx, event)

	result.Applied = true
	result.FeatureSpec = spec
	return result, nil
}

func (s *suggestionService) publish(ctx context.Context, event realtime.ChangeEvent) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("change event not published",
			"type", event.Type,
			"change_id", event.ChangeID,
			"error", err,
		)
	}
}

func (s *suggestionService) parsePath(raw string) (specModels.FieldPath, error) {
	path, err := specModels.ParseFieldPath(raw)
	if err != nil {
		return specModels.FieldPath{}, &domain.ValidationError{Message: err.Error()}
	}
	if s.registry != nil {
		if err := s.registry.Validate(path); err != nil {
			return specModels.FieldPath{}, &domain.ValidationError{Message: err.Error()}
		}
	}
	return path, nil
}

func (s *suggestionService) validateProposal(req *specSvc.ProposeFieldEditRequest) error {
	if req == nil {
		return &domain.ValidationError{Message: "request is required"}
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.FeatureSpecID, validation.Required),
		validation.Field(&req.FieldPath, validation.Required),
		validation.Field(&req.ChangeDescription, validation.Length(0, config.MaxChangeDescriptionLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
