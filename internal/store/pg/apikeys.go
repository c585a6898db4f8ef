package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type apiKeyStore struct {
	pool *pgxpool.Pool
}

func (s apiKeyStore) Create(ctx context.Context, k *domain.ApiKey) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_key (id, user_id, token_hash, active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`,
		k.ID, k.UserID, k.TokenHash, k.Active, k.ExpiresAt,
	).Scan(&k.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return apperr.Wrap(apperr.StorageError, "create api key", err)
	}
	return nil
}

func (s apiKeyStore) Get(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, active, expires_at, created_at, rotated_at
		FROM api_key WHERE id = $1`, id)
	return scanAPIKey(row)
}

func scanAPIKey(row pgx.Row) (*domain.ApiKey, error) {
	var k domain.ApiKey
	if err := row.Scan(&k.ID, &k.UserID, &k.TokenHash, &k.Active, &k.ExpiresAt, &k.CreatedAt, &k.RotatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageError, "scan api key", err)
	}
	return &k, nil
}

func (s apiKeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, token_hash, active, expires_at, created_at, rotated_at
		FROM api_key WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "list api keys", err)
	}
	defer rows.Close()

	var out []domain.ApiKey
	for rows.Next() {
		var k domain.ApiKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.TokenHash, &k.Active, &k.ExpiresAt, &k.CreatedAt, &k.RotatedAt); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "scan api key", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s apiKeyStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM api_key WHERE user_id = $1 AND active AND expires_at > now()`, userID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.StorageError, "count api keys", err)
	}
	return count, nil
}

// Rotate atomically replaces the token hash in a single UPDATE: the prior
// secret compares false against the new hash from the instant this commits.
func (s apiKeyStore) Rotate(ctx context.Context, id uuid.UUID, newTokenHash string, rotatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE api_key SET token_hash = $2, rotated_at = $3
		WHERE id = $1 AND active`, id, newTokenHash, rotatedAt)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "rotate api key", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "api key not found or inactive")
	}
	return nil
}

func (s apiKeyStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_key WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "delete api key", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "api key not found")
	}
	return nil
}
