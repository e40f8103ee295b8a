package specsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"specboard/internal/domain"
	models "specboard/internal/domain/models/specsystem"
	"specboard/internal/domain/repositories"
	specRepo "specboard/internal/domain/repositories/specsystem"
	specSvc "specboard/internal/domain/services/specsystem"
)

// documentReconciler writes accepted changes into the stored feature spec.
type documentReconciler struct {
	specRepo   specRepo.FeatureSpecRepository
	changeRepo specRepo.FieldChangeRepository
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

// NewDocumentReconciler creates a reconciler backed by the feature spec store
func NewDocumentReconciler(
	specRepo specRepo.FeatureSpecRepository,
	changeRepo specRepo.FieldChangeRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) specSvc.Reconciler {
	return &documentReconciler{
		specRepo:   specRepo,
		changeRepo: changeRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// Apply locks the feature spec row, writes change.NewValue at change.FieldPath,
// bumps the version and marks the change applied, all in one transaction.
// On success change.AppliedAt is set.
func (r *documentReconciler) Apply(ctx context.Context, change *models.FieldChange) (*models.FeatureSpec, error) {
	fail := func(err error) error {
		return &domain.ReconciliationError{
			ChangeID:      change.ID,
			FeatureSpecID: change.FeatureSpecID,
			FieldPath:     change.FieldPath,
			Err:           err,
		}
	}

	if change.Status != models.ChangeStatusAccepted {
		return nil, fail(fmt.Errorf("change is %s, not accepted", change.Status))
	}
	path, err := models.ParseFieldPath(change.FieldPath)
	if err != nil {
		return nil, fail(err)
	}

	var spec *models.FeatureSpec
	now := time.Now().UTC()

	err = r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := r.specRepo.GetByIDForUpdate(txCtx, change.FeatureSpecID)
		if err != nil {
			return err
		}

		content, err := ApplyAtPath(current.Content, path, change.NewValue)
		if err != nil {
			return err
		}
		current.Content = content
		current.Version++
		current.UpdatedAt = now

		if err := r.specRepo.UpdateContent(txCtx, current); err != nil {
			return err
		}
		if err := r.changeRepo.MarkApplied(txCtx, change.ID, now); err != nil {
			return err
		}

		spec = current
		return nil
	})
	if err != nil {
		return nil, fail(err)
	}

	change.AppliedAt = &now
	change.UpdatedAt = now

	r.logger.Info("field change applied",
		"change_id", change.ID,
		"feature_spec_id", change.FeatureSpecID,
		"field_path", change.FieldPath,
		"version", spec.Version,
	)

	return spec, nil
}
