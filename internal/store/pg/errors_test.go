package pg

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyPgErrorExtractsCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgErrUniqueViolation, Message: "duplicate key"}
	code, ok := classifyPgError(pgErr)
	if !ok {
		t.Fatal("expected classifyPgError to recognize a *pgconn.PgError")
	}
	if code != pgErrUniqueViolation {
		t.Fatalf("expected code %q, got %q", pgErrUniqueViolation, code)
	}
}

func TestClassifyPgErrorWrappedStillMatches(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgErrForeignKeyViolation}
	wrapped := errors.Join(errors.New("insert failed"), pgErr)
	code, ok := classifyPgError(wrapped)
	if !ok || code != pgErrForeignKeyViolation {
		t.Fatalf("expected wrapped PgError to still be classified, got code=%q ok=%v", code, ok)
	}
}

func TestClassifyPgErrorFalseForNonPgError(t *testing.T) {
	if _, ok := classifyPgError(errors.New("connection reset")); ok {
		t.Fatal("expected a generic error to not classify as a Postgres error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: pgErrUniqueViolation}) {
		t.Fatal("expected unique violation code to match")
	}
	if isUniqueViolation(&pgconn.PgError{Code: pgErrForeignKeyViolation}) {
		t.Fatal("expected foreign key violation code to not match unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("expected a non-Postgres error to not match")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(&pgconn.PgError{Code: pgErrForeignKeyViolation}) {
		t.Fatal("expected foreign key violation code to match")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: pgErrUniqueViolation}) {
		t.Fatal("expected unique violation code to not match foreign key violation")
	}
}
