package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type uploadSessionStore struct {
	pool *pgxpool.Pool
}

// CreateWithRecords runs the ingest transaction: one UploadSession insert
// followed by chunked multi-row Record inserts, all read-committed and
// atomic. Either the whole batch becomes visible, or none of it does.
func (s uploadSessionStore) CreateWithRecords(ctx context.Context, session *domain.UploadSession, records []domain.Record, chunkSize int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "begin ingest transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO upload_session (user_id, format_id, record_count, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at`,
		session.UserID, session.FormatID, session.RecordCount,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "insert upload session", err)
	}

	if chunkSize < 1 {
		chunkSize = len(records)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := insertRecordChunk(ctx, tx, session.ID, session.FormatID, records[start:end]); err != nil {
			return apperr.Wrap(apperr.StorageError, "insert record chunk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.StorageError, "commit ingest transaction", err)
	}
	return nil
}

func insertRecordChunk(ctx context.Context, tx pgx.Tx, sessionID, formatID int64, chunk []domain.Record) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO record (format_id, upload_session_id, data, created_at) VALUES `)
	args := make([]any, 0, len(chunk)*4)
	for i, rec := range chunk {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, formatID, sessionID, data, rec.CreatedAt)
	}
	_, err := tx.Exec(ctx, sb.String(), args...)
	return err
}

func (s uploadSessionStore) Get(ctx context.Context, id int64) (*domain.UploadSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, format_id, record_count, created_at
		FROM upload_session WHERE id = $1`, id)
	var us domain.UploadSession
	if err := row.Scan(&us.ID, &us.UserID, &us.FormatID, &us.RecordCount, &us.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.StorageError, "scan upload session", err)
	}
	return &us, nil
}

func (s uploadSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UploadSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, format_id, record_count, created_at
		FROM upload_session WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "list upload sessions", err)
	}
	defer rows.Close()

	var out []domain.UploadSession
	for rows.Next() {
		var us domain.UploadSession
		if err := rows.Scan(&us.ID, &us.UserID, &us.FormatID, &us.RecordCount, &us.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.StorageError, "scan upload session", err)
		}
		out = append(out, us)
	}
	return out, rows.Err()
}

// Delete cascades to the session's records via the record.upload_session_id
// foreign key's ON DELETE CASCADE.
func (s uploadSessionStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM upload_session WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "delete upload session", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "upload session not found")
	}
	return nil
}

// DeleteOlderThan deletes at most batchSize sessions older than cutoff in
// one small transaction, so the prune job never holds a long-running lock.
func (s uploadSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM upload_session WHERE id IN (
			SELECT id FROM upload_session WHERE created_at < $1 ORDER BY id LIMIT $2
		)`, cutoff, batchSize)
	if err != nil {
		return 0, apperr.Wrap(apperr.StorageError, "prune upload sessions", err)
	}
	return int(tag.RowsAffected()), nil
}
