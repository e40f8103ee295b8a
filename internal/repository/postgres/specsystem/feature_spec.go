package specsystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"specboard/internal/domain/models"
	specModels "specboard/internal/domain/models/specsystem"
	specRepo "specboard/internal/domain/repositories/specsystem"
	"specboard/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const featureSpecColumns = `id, author_id, author_email, status, version, content, created_at, updated_at`

// PostgresFeatureSpecRepository implements the FeatureSpecRepository interface
type PostgresFeatureSpecRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewFeatureSpecRepository creates a new feature spec repository
func NewFeatureSpecRepository(config *postgres.RepositoryConfig) specRepo.FeatureSpecRepository {
	return &PostgresFeatureSpecRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new feature spec
func (r *PostgresFeatureSpecRepository) Create(ctx context.Context, spec *specModels.FeatureSpec) error {
	content, err := encodeContent(spec.Content)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (author_id, author_email, status, version, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.FeatureSpecs)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		spec.AuthorID,
		spec.AuthorEmail,
		spec.Status,
		spec.Version,
		content,
		spec.CreatedAt,
		spec.UpdatedAt,
	).Scan(&spec.ID, &spec.CreatedAt, &spec.UpdatedAt)
	if err != nil {
		return postgres.TranslateError(err, "create feature spec", "feature spec", spec.ID)
	}

	return nil
}

// GetByID retrieves a feature spec by ID
func (r *PostgresFeatureSpecRepository) GetByID(ctx context.Context, id string) (*specModels.FeatureSpec, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, featureSpecColumns, r.tables.FeatureSpecs)
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a feature spec and locks its row
func (r *PostgresFeatureSpecRepository) GetByIDForUpdate(ctx context.Context, id string) (*specModels.FeatureSpec, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, featureSpecColumns, r.tables.FeatureSpecs)
	return r.getOne(ctx, query, id)
}

func (r *PostgresFeatureSpecRepository) getOne(ctx context.Context, query, id string) (*specModels.FeatureSpec, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	spec, err := scanFeatureSpec(executor.QueryRow(ctx, query, id))
	if err != nil {
		return nil, postgres.TranslateError(err, "get feature spec", "feature spec", id)
	}
	return spec, nil
}

// ListByAuthor lists feature specs owned by a user
func (r *PostgresFeatureSpecRepository) ListByAuthor(ctx context.Context, authorID string) ([]specModels.FeatureSpec, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE author_id = $1
		ORDER BY updated_at DESC
	`, featureSpecColumns, r.tables.FeatureSpecs)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, authorID)
	if err != nil {
		return nil, postgres.TranslateError(err, "list feature specs", "feature spec", "")
	}
	defer rows.Close()

	specs := []specModels.FeatureSpec{}
	for rows.Next() {
		spec, err := scanFeatureSpec(rows)
		if err != nil {
			return nil, postgres.TranslateError(err, "scan feature spec", "feature spec", "")
		}
		specs = append(specs, *spec)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.TranslateError(err, "list feature specs", "feature spec", "")
	}

	return specs, nil
}

// UpdateContent writes content and version
func (r *PostgresFeatureSpecRepository) UpdateContent(ctx context.Context, spec *specModels.FeatureSpec) error {
	content, err := encodeContent(spec.Content)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, version = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.FeatureSpecs)

	return r.execUpdate(ctx, query, spec.ID, "update feature spec content", content, spec.Version, spec.UpdatedAt, spec.ID)
}

// UpdateStatus writes status
func (r *PostgresFeatureSpecRepository) UpdateStatus(ctx context.Context, spec *specModels.FeatureSpec) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.FeatureSpecs)

	return r.execUpdate(ctx, query, spec.ID, "update feature spec status", spec.Status, spec.UpdatedAt, spec.ID)
}

func (r *PostgresFeatureSpecRepository) execUpdate(ctx context.Context, query, id, op string, args ...any) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return postgres.TranslateError(err, op, "feature spec", id)
	}
	if result.RowsAffected() == 0 {
		return postgres.TranslateError(pgx.ErrNoRows, op, "feature spec", id)
	}
	return nil
}

func scanFeatureSpec(row pgx.Row) (*specModels.FeatureSpec, error) {
	var spec specModels.FeatureSpec
	var content []byte
	err := row.Scan(
		&spec.ID,
		&spec.AuthorID,
		&spec.AuthorEmail,
		&spec.Status,
		&spec.Version,
		&content,
		&spec.CreatedAt,
		&spec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	spec.Content, err = decodeContent(content)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func encodeContent(content models.JSONMap) ([]byte, error) {
	if content == nil {
		content = models.JSONMap{}
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode feature spec content: %w", err)
	}
	return data, nil
}

func decodeContent(data []byte) (models.JSONMap, error) {
	content := models.JSONMap{}
	if len(data) == 0 {
		return content, nil
	}
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode feature spec content: %w", err)
	}
	return content, nil
}
