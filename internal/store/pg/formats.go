package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type formatStore struct {
	pool *pgxpool.Pool
}

func (s formatStore) Create(ctx context.Context, f *domain.Format) error {
	schema, err := json.Marshal(f.Schema)
	if err != nil {
		return apperr.Wrap(apperr.BadRequest, "encode schema", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO format (name, description, schema, created_by, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at`,
		f.Name, f.Description, schema, f.CreatedBy,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.Conflict, "format name already exists")
		}
		return apperr.Wrap(apperr.StorageError, "create format", err)
	}
	return nil
}

func (s formatStore) Get(ctx context.Context, id int64) (*domain.Format, error) {
	return scanFormat(s.pool.QueryRow(ctx, `
		SELECT id, name, description, schema, created_by, created_at
		FROM format WHERE id = $1`, id))
}

func scanFormat(row pgx.Row) (*domain.Format, error) {
	var f domain.Format
	var schema []byte
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &schema, &f.CreatedBy, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageError, "scan format", err)
	}
	if err := json.Unmarshal(schema, &f.Schema); err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "decode schema", err)
	}
	return &f, nil
}

// ListReadable restricts results to formats the caller is entitled to read,
// via a subquery over entitlement rather than an in-memory post-filter.
func (s formatStore) ListReadable(ctx context.Context, userID uuid.UUID, isSuperuser bool) ([]domain.Format, error) {
	var rows pgx.Rows
	var err error
	if isSuperuser {
		rows, err = s.pool.Query(ctx, `
			SELECT id, name, description, schema, created_by, created_at
			FROM format ORDER BY created_at ASC`)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, name, description, schema, created_by, created_at
			FROM format
			WHERE id IN (
				SELECT format_id FROM entitlement
				WHERE user_id = $1 AND 'read' = ANY(access)
			)
			ORDER BY created_at ASC`, userID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "list formats", err)
	}
	defer rows.Close()

	var out []domain.Format
	for rows.Next() {
		var f domain.Format
		var schema []byte
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &schema, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "scan format", err)
		}
		if err := json.Unmarshal(schema, &f.Schema); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "decode schema", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete refuses while any upload session references id, per the safest
// default for the open question on format deletion ordering.
func (s formatStore) Delete(ctx context.Context, id int64) error {
	var sessionCount int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM upload_session WHERE format_id = $1`, id).Scan(&sessionCount); err != nil {
		return apperr.Wrap(apperr.StorageError, "count upload sessions", err)
	}
	if sessionCount > 0 {
		return apperr.New(apperr.Conflict, "format has existing upload sessions; delete them first")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM format WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "delete format", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "format not found")
	}
	return nil
}
