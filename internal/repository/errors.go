package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a row with the same key already exists
	ErrDuplicate = errors.New("record already exists")

	// ErrConstraint is returned when a row violates a check, not-null or
	// type constraint. Retrying the same write cannot succeed.
	ErrConstraint = errors.New("record violates a table constraint")

	// ErrForbidden is returned when row-level security rejects the statement
	ErrForbidden = errors.New("row-level security denied access")
)

// mapPQError translates driver errors into the repository taxonomy.
func mapPQError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case pqErr.Code == "42501": // insufficient_privilege
			return fmt.Errorf("%s: %w", op, ErrForbidden)
		case pqErr.Code.Class() == "23", pqErr.Code == "22P02":
			return fmt.Errorf("%s: %s: %w", op, pqErr.Message, ErrConstraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
