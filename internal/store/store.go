// Package store defines the storage seam the core packages depend on. The
// pg subpackage is the only implementation; core code never imports pgx
// directly.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/query"
)

// Store aggregates the per-entity sub-stores.
type Store interface {
	Users() UserStore
	ApiKeys() ApiKeyStore
	Formats() FormatStore
	Entitlements() EntitlementStore
	UploadSessions() UploadSessionStore
	Records() RecordStore
	Close()
}

// UserStore is CRUD for User.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ApiKeyStore is the lifecycle store for ApiKey.
type ApiKeyStore interface {
	Create(ctx context.Context, k *domain.ApiKey) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ApiKey, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// Rotate atomically replaces tokenHash for key id and stamps rotatedAt.
	Rotate(ctx context.Context, id uuid.UUID, newTokenHash string, rotatedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FormatStore is CRUD for Format.
type FormatStore interface {
	Create(ctx context.Context, f *domain.Format) error
	Get(ctx context.Context, id int64) (*domain.Format, error)
	// ListReadable returns formats the given user may read; superusers see all.
	ListReadable(ctx context.Context, userID uuid.UUID, isSuperuser bool) ([]domain.Format, error)
	// Delete refuses (Conflict) while any upload session references id.
	Delete(ctx context.Context, id int64) error
}

// EntitlementStore is CRUD for Entitlement.
type EntitlementStore interface {
	Get(ctx context.Context, userID uuid.UUID, formatID int64) (*domain.Entitlement, error)
	// Grant upserts the access set for (userID, formatID).
	Grant(ctx context.Context, e *domain.Entitlement) error
	Revoke(ctx context.Context, userID uuid.UUID, formatID int64) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Entitlement, error)
}

// UploadSessionStore manages UploadSession lifecycle, including the atomic
// ingest transaction.
type UploadSessionStore interface {
	// CreateWithRecords opens one transaction: inserts the session row, then
	// inserts records in chunks of chunkSize. Either both succeed or neither
	// is visible.
	CreateWithRecords(ctx context.Context, session *domain.UploadSession, records []domain.Record, chunkSize int) error
	Get(ctx context.Context, id int64) (*domain.UploadSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UploadSession, error)
	// Delete cascades to the session's records.
	Delete(ctx context.Context, id int64) error
	// DeleteOlderThan is used by the prune job; it deletes at most batchSize
	// sessions per call so callers can loop in small transactions.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error)
}

// RecordStore executes DNF filter queries and streaming partition cursors.
type RecordStore interface {
	Query(ctx context.Context, spec query.Spec) (query.Result, error)
	// OpenPartitionCursor returns a cursor over one disjoint partition of
	// spec's result set, identified by partitionIndex of partitionCount.
	OpenPartitionCursor(ctx context.Context, spec query.Spec, partitionIndex, partitionCount int) (RecordCursor, error)
}

// RecordCursor streams Records for one partition of a streaming export.
type RecordCursor interface {
	Next(ctx context.Context) (domain.Record, bool, error)
	Close(ctx context.Context) error
}
