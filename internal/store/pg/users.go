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

type userStore struct {
	pool *pgxpool.Pool
}

func (s userStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO "user" (id, username, password_hash, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.IsSuperuser,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.Conflict, "username already exists")
		}
		return apperr.Wrap(apperr.StorageError, "create user", err)
	}
	return nil
}

func (s userStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_superuser, created_at
		FROM "user" WHERE id = $1`, id))
}

func (s userStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, is_superuser, created_at
		FROM "user" WHERE username = $1`, username))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageError, "scan user", err)
	}
	return &u, nil
}

func (s userStore) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, password_hash, is_superuser, created_at
		FROM "user" ORDER BY created_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "list users", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "scan user", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s userStore) Update(ctx context.Context, u *domain.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE "user" SET username = $2, password_hash = $3, is_superuser = $4
		WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash, u.IsSuperuser)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.Conflict, "username already exists")
		}
		return apperr.Wrap(apperr.StorageError, "update user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

func (s userStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}
