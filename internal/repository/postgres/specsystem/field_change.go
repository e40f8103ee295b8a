package specsystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"specboard/internal/domain"
	specModels "specboard/internal/domain/models/specsystem"
	specRepo "specboard/internal/domain/repositories/specsystem"
	"specboard/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fieldChangeColumns = `id, feature_spec_id, field_path, field_type, old_value, new_value,
	change_description, author_id, author_email, status, created_at, updated_at,
	accepted_at, accepted_by, rejected_at, rejected_by, applied_at`

// PostgresFieldChangeRepository implements the FieldChangeRepository interface
type PostgresFieldChangeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewFieldChangeRepository creates a new field change repository
func NewFieldChangeRepository(config *postgres.RepositoryConfig) specRepo.FieldChangeRepository {
	return &PostgresFieldChangeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new field change
func (r *PostgresFieldChangeRepository) Create(ctx context.Context, change *specModels.FieldChange) error {
	oldValue, err := encodeValue(change.OldValue)
	if err != nil {
		return err
	}
	newValue, err := encodeValue(change.NewValue)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			feature_spec_id, field_path, field_type, old_value, new_value,
			change_description, author_id, author_email, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, r.tables.FieldChanges)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		change.FeatureSpecID,
		change.FieldPath,
		change.FieldType,
		oldValue,
		newValue,
		change.ChangeDescription,
		change.AuthorID,
		change.AuthorEmail,
		change.Status,
		change.CreatedAt,
		change.UpdatedAt,
	).Scan(&change.ID, &change.CreatedAt, &change.UpdatedAt)
	if err != nil {
		// A missing or malformed spec id surfaces as a foreign key or text error
		return postgres.TranslateError(err, "create field change", "feature spec", change.FeatureSpecID)
	}

	return nil
}

// GetByID retrieves a field change by ID
func (r *PostgresFieldChangeRepository) GetByID(ctx context.Context, id string) (*specModels.FieldChange, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, fieldChangeColumns, r.tables.FieldChanges)

	executor := postgres.GetExecutor(ctx, r.pool)
	change, err := scanFieldChange(executor.QueryRow(ctx, query, id))
	if err != nil {
		return nil, postgres.TranslateError(err, "get field change", "field change", id)
	}
	return change, nil
}

// List returns the changes matching filter, newest first
func (r *PostgresFieldChangeRepository) List(ctx context.Context, filter specModels.FieldChangeFilter) ([]*specModels.FieldChange, error) {
	where, args := buildChangeFilter(filter)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
	`, fieldChangeColumns, r.tables.FieldChanges, where)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			// Malformed spec id: nothing can match
			return []*specModels.FieldChange{}, nil
		}
		return nil, postgres.TranslateError(err, "list field changes", "field change", "")
	}
	defer rows.Close()

	changes := []*specModels.FieldChange{}
	for rows.Next() {
		change, err := scanFieldChange(rows)
		if err != nil {
			return nil, postgres.TranslateError(err, "scan field change", "field change", "")
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.TranslateError(err, "list field changes", "field change", "")
	}

	return changes, nil
}

// UpdateStatus applies a decision and returns the updated change.
// The status and its timestamp/actor pair are written in one statement, and
// only a pending row is updated. A change that is already decided yields a
// *domain.ConflictError.
func (r *PostgresFieldChangeRepository) UpdateStatus(ctx context.Context, t specModels.StatusTransition) (*specModels.FieldChange, error) {
	query, err := buildStatusUpdate(r.tables.FieldChanges, t.Status)
	if err != nil {
		return nil, err
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	change, err := scanFieldChange(executor.QueryRow(ctx, query, t.ChangeID, t.Status, t.At, t.Actor))
	if errors.Is(err, pgx.ErrNoRows) {
		// Missing, or already decided by someone else
		current, getErr := r.GetByID(ctx, t.ChangeID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("field change %s is already %s", current.ID, current.Status),
			ResourceType: "field_change",
			ResourceID:   current.ID,
		}
	}
	if err != nil {
		return nil, postgres.TranslateError(err, "update field change status", "field change", t.ChangeID)
	}
	return change, nil
}

// MarkApplied records that an accepted change was written into its feature spec
func (r *PostgresFieldChangeRepository) MarkApplied(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET applied_at = $1, updated_at = $1
		WHERE id = $2
	`, r.tables.FieldChanges)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, id)
	if err != nil {
		return postgres.TranslateError(err, "mark field change applied", "field change", id)
	}
	if result.RowsAffected() == 0 {
		return postgres.TranslateError(pgx.ErrNoRows, "mark field change applied", "field change", id)
	}
	return nil
}

// buildChangeFilter returns the WHERE clause and arguments for filter.
// The feature spec id is always bound as $1.
func buildChangeFilter(filter specModels.FieldChangeFilter) (string, []any) {
	conditions := []string{"feature_spec_id = $1"}
	args := []any{filter.FeatureSpecID}

	if filter.FieldPath != "" {
		args = append(args, filter.FieldPath)
		conditions = append(conditions, fmt.Sprintf("field_path = $%d", len(args)))
	}
	if filter.PathPrefix != "" {
		// starts_with avoids LIKE wildcard escaping
		args = append(args, filter.PathPrefix)
		conditions = append(conditions, fmt.Sprintf("starts_with(field_path, $%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// buildStatusUpdate returns the UPDATE statement for a decision.
// Arguments: $1 id, $2 status, $3 decided at, $4 actor.
func buildStatusUpdate(table string, status specModels.ChangeStatus) (string, error) {
	var stamp string
	switch status {
	case specModels.ChangeStatusAccepted:
		stamp = "accepted_at = $3, accepted_by = $4"
	case specModels.ChangeStatusRejected:
		stamp = "rejected_at = $3, rejected_by = $4"
	default:
		return "", fmt.Errorf("cannot transition field change to %q", status)
	}

	return fmt.Sprintf(`
		UPDATE %s
		SET status = $2, updated_at = $3, %s
		WHERE id = $1 AND status = '%s'
		RETURNING %s
	`, table, stamp, specModels.ChangeStatusPending, fieldChangeColumns), nil
}

func scanFieldChange(row pgx.Row) (*specModels.FieldChange, error) {
	var change specModels.FieldChange
	var oldValue, newValue []byte
	var description *string

	err := row.Scan(
		&change.ID,
		&change.FeatureSpecID,
		&change.FieldPath,
		&change.FieldType,
		&oldValue,
		&newValue,
		&description,
		&change.AuthorID,
		&change.AuthorEmail,
		&change.Status,
		&change.CreatedAt,
		&change.UpdatedAt,
		&change.AcceptedAt,
		&change.AcceptedBy,
		&change.RejectedAt,
		&change.RejectedBy,
		&change.AppliedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		change.ChangeDescription = *description
	}
	if change.OldValue, err = decodeValue(oldValue); err != nil {
		return nil, err
	}
	if change.NewValue, err = decodeValue(newValue); err != nil {
		return nil, err
	}
	return &change, nil
}

// encodeValue marshals a field value for a jsonb column. Passing []byte keeps
// pgx from treating a Go string as raw JSON text.
func encodeValue(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode field value: %w", err)
	}
	return data, nil
}

func decodeValue(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode field value: %w", err)
	}
	return v, nil
}
