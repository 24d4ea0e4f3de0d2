// Package pg maps postgres driver errors onto the domain error taxonomy so
// every store translates them the same way.
package pg

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	dErrors "lingkod/pkg/domain-errors"
)

const (
	uniqueViolation     = "23505"
	checkViolation      = "23514"
	foreignKeyViolation = "23503"
)

// MapError translates a driver error into a domain error. Unique and check
// violations become CodeConflict so callers can tell an integrity conflict
// from a connectivity outage; sql.ErrNoRows becomes CodeNotFound.
func MapError(err error, context string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, context)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case uniqueViolation, checkViolation:
			return dErrors.Wrap(err, dErrors.CodeConflict, context)
		case foreignKeyViolation:
			return dErrors.Wrap(err, dErrors.CodeValidation, context)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, context)
}
