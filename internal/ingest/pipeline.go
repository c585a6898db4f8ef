// Package ingest implements the chunked, transactional bulk-insert
// pipeline: schema validation followed by an atomic upload session.
package ingest

import (
	"context"
	"time"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/store"
	"github.com/qazna-labs/recordvault/internal/validate"
)

// Pipeline runs the ingest operation described by the schema-conformance
// and atomicity invariants: either all rows of a batch become visible
// together, bound to one upload session, or none do.
type Pipeline struct {
	store     store.Store
	resolver  *entitlement.Resolver
	chunkSize int
}

// New builds a Pipeline bound to the store, entitlement resolver, and the
// configured bulk-insert chunk size.
func New(s store.Store, resolver *entitlement.Resolver, chunkSize int) *Pipeline {
	return &Pipeline{store: s, resolver: resolver, chunkSize: chunkSize}
}

// Outcome is the result of a successful ingest.
type Outcome struct {
	UploadSessionID int64
	RecordCount     int
}

// Ingest validates rows against formatID's schema and, on success, inserts
// them all within one upload session transaction.
func (p *Pipeline) Ingest(ctx context.Context, user domain.User, formatID int64, rows []map[string]any) (Outcome, *apperr.Error) {
	format, err := p.store.Formats().Get(ctx, formatID)
	if err != nil || format == nil {
		return Outcome{}, apperr.New(apperr.NotFound, "format not found")
	}
	if aerr := p.resolver.Require(ctx, user, format.ID, domain.AccessWrite); aerr != nil {
		return Outcome{}, aerr
	}
	if aerr := validate.Rows(*format, rows); aerr != nil {
		return Outcome{}, aerr
	}

	session := &domain.UploadSession{
		UserID:      user.ID,
		FormatID:    format.ID,
		RecordCount: len(rows),
	}
	records := make([]domain.Record, len(rows))
	now := time.Now().UTC()
	for i, row := range rows {
		records[i] = domain.Record{
			FormatID:  format.ID,
			Data:      row,
			CreatedAt: now,
		}
	}

	if err := p.store.UploadSessions().CreateWithRecords(ctx, session, records, p.chunkSize); err != nil {
		return Outcome{}, apperr.Wrap(apperr.StorageError, "ingest transaction failed", err)
	}
	return Outcome{UploadSessionID: session.ID, RecordCount: session.RecordCount}, nil
}
