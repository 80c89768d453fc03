package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const pqUniqueViolation pq.ErrorCode = "23505"

// pqError unwraps err to the driver error, if there is one.
func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil, false
	}
	return pqErr, true
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// on the named constraint when one is given.
func IsUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqError(err)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
