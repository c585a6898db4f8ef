package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type entitlementStore struct {
	pool *pgxpool.Pool
}

func (s entitlementStore) Get(ctx context.Context, userID uuid.UUID, formatID int64) (*domain.Entitlement, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, format_id, access FROM entitlement
		WHERE user_id = $1 AND format_id = $2`, userID, formatID)
	return scanEntitlement(row)
}

func scanEntitlement(row pgx.Row) (*domain.Entitlement, error) {
	var e domain.Entitlement
	var access []string
	if err := row.Scan(&e.UserID, &e.FormatID, &access); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageError, "scan entitlement", err)
	}
	e.Access = make([]domain.Access, len(access))
	for i, a := range access {
		e.Access[i] = domain.Access(a)
	}
	return &e, nil
}

// Grant upserts the access set for (userID, formatID), stored as a
// Postgres text array.
func (s entitlementStore) Grant(ctx context.Context, e *domain.Entitlement) error {
	access := make([]string, len(e.Access))
	for i, a := range e.Access {
		access[i] = string(a)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO entitlement (user_id, format_id, access)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, format_id) DO UPDATE SET access = EXCLUDED.access`,
		e.UserID, e.FormatID, access)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.New(apperr.NotFound, "user or format not found")
		}
		return apperr.Wrap(apperr.StorageError, "grant entitlement", err)
	}
	return nil
}

func (s entitlementStore) Revoke(ctx context.Context, userID uuid.UUID, formatID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM entitlement WHERE user_id = $1 AND format_id = $2`, userID, formatID)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "revoke entitlement", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "entitlement not found")
	}
	return nil
}

func (s entitlementStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Entitlement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, format_id, access FROM entitlement WHERE user_id = $1`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "list entitlements", err)
	}
	defer rows.Close()

	var out []domain.Entitlement
	for rows.Next() {
		var e domain.Entitlement
		var access []string
		if err := rows.Scan(&e.UserID, &e.FormatID, &access); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "scan entitlement", err)
		}
		e.Access = make([]domain.Access, len(access))
		for i, a := range access {
			e.Access[i] = domain.Access(a)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
