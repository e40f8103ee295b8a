package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"specboard/internal/domain"
)

// SQLSTATE codes the repositories react to
const (
	codeInvalidText    = "22P02" // invalid_text_representation, e.g. a malformed uuid
	codeForeignKey     = "23503" // foreign_key_violation
	codeUniqueViolated = "23505" // unique_violation
	codeCheckViolated  = "23514" // check_violation
)

// sqlState returns the SQLSTATE of a server error, or "" for anything else.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgInvalidTextError reports whether a value could not be parsed as the
// column's type, which for uuid keys means the row cannot exist.
func IsPgInvalidTextError(err error) bool {
	return sqlState(err) == codeInvalidText
}

// TranslateError maps a driver error onto the domain errors. resource and id
// name the row the statement targeted; op labels storage failures.
func TranslateError(err error, op, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", resource, id, domain.ErrNotFound)
	}

	switch sqlState(err) {
	case codeInvalidText:
		return fmt.Errorf("%s %s: %w", resource, id, domain.ErrNotFound)
	case codeForeignKey:
		return fmt.Errorf("%s references a missing row: %w", resource, domain.ErrNotFound)
	case codeUniqueViolated:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s %s already exists", resource, id),
			ResourceType: resource,
			ResourceID:   id,
		}
	case codeCheckViolated:
		return &domain.ValidationError{Message: fmt.Sprintf("%s rejected by a database constraint", resource)}
	default:
		return domain.StorageError(op, err)
	}
}
