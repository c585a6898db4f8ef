// Package pg is the pgx-backed implementation of the store seam.
package pg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// classifyPgError inspects a driver error for the Postgres error codes the
// core cares about, returning ok=false for anything else so the caller can
// fall back to a generic StorageError.
func classifyPgError(err error) (code string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

func isUniqueViolation(err error) bool {
	code, ok := classifyPgError(err)
	return ok && code == pgErrUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, ok := classifyPgError(err)
	return ok && code == pgErrForeignKeyViolation
}
