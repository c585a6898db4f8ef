// Package entitlement decides whether a principal may read, write, delete,
// or limitedDelete records of a given format.
package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/store"
)

// Resolver checks access grants against the entitlement store.
type Resolver struct {
	entitlements store.EntitlementStore
	temporalDeleteWindow time.Duration
}

// New builds a Resolver bound to the entitlement store.
func New(entitlements store.EntitlementStore, temporalDeleteWindow time.Duration) *Resolver {
	return &Resolver{entitlements: entitlements, temporalDeleteWindow: temporalDeleteWindow}
}

// Require checks that user has want on formatID. Superusers always pass.
func (r *Resolver) Require(ctx context.Context, user domain.User, formatID int64, want domain.Access) *apperr.Error {
	if user.IsSuperuser {
		return nil
	}
	ent, err := r.entitlements.Get(ctx, user.ID, formatID)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "load entitlement", err)
	}
	if ent == nil {
		return apperr.New(apperr.Forbidden, "no entitlement for format")
	}
	if !ent.Has(want) {
		return apperr.New(apperr.Forbidden, "insufficient access")
	}
	return nil
}

// RequireDelete checks delete or limitedDelete access for deleting records
// whose oldest was created at oldestRecordCreatedAt. limitedDelete only
// permits deleting records created within the last temporalDeleteWindow.
func (r *Resolver) RequireDelete(ctx context.Context, user domain.User, formatID int64, oldestRecordCreatedAt time.Time, now time.Time) *apperr.Error {
	if user.IsSuperuser {
		return nil
	}
	ent, err := r.entitlements.Get(ctx, user.ID, formatID)
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "load entitlement", err)
	}
	if ent == nil {
		return apperr.New(apperr.Forbidden, "no entitlement for format")
	}
	if ent.Has(domain.AccessDelete) {
		return nil
	}
	if ent.Has(domain.AccessLimitedDelete) {
		if now.Sub(oldestRecordCreatedAt) <= r.temporalDeleteWindow {
			return nil
		}
		return apperr.New(apperr.Forbidden, "records older than the limited-delete window")
	}
	return apperr.New(apperr.Forbidden, "insufficient access")
}

// ReadableFormatIDs filters candidate formats to the ones user may read.
func ReadableFormatIDs(ctx context.Context, formats store.FormatStore, userID uuid.UUID, isSuperuser bool) ([]domain.Format, error) {
	return formats.ListReadable(ctx, userID, isSuperuser)
}
