package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"movie-discovery/internal/models"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// wrapError maps driver errors onto the domain error taxonomy.
func wrapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, models.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		case pqCheckViolation:
			return fmt.Errorf("%s: %w", op, models.ErrRatingOutOfRange)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
