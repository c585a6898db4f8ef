package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/query"
	"github.com/qazna-labs/recordvault/internal/store"
)

func testFormat(id int64) *domain.Format {
	return &domain.Format{
		ID: id,
		Schema: []domain.Column{
			{Name: "amount", Kind: domain.KindNumber},
			{Name: "label", Kind: domain.KindString},
		},
	}
}

// fakeStore implements store.Store with just enough behavior for the
// ingest pipeline: a format lookup and a recording upload session store.
type fakeStore struct {
	formats     map[int64]*domain.Format
	entitlement *fakeEntitlementStore

	lastSession *domain.UploadSession
	lastRecords []domain.Record
	lastChunk   int
	createErr   error
}

type fakeEntitlementStore struct {
	byUser map[uuid.UUID][]domain.Access
}

func (f *fakeEntitlementStore) Get(ctx context.Context, userID uuid.UUID, formatID int64) (*domain.Entitlement, error) {
	access, ok := f.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &domain.Entitlement{UserID: userID, FormatID: formatID, Access: access}, nil
}
func (f *fakeEntitlementStore) Grant(ctx context.Context, e *domain.Entitlement) error { return nil }
func (f *fakeEntitlementStore) Revoke(ctx context.Context, userID uuid.UUID, formatID int64) error {
	return nil
}
func (f *fakeEntitlementStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Entitlement, error) {
	return nil, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		formats:     map[int64]*domain.Format{},
		entitlement: &fakeEntitlementStore{byUser: map[uuid.UUID][]domain.Access{}},
	}
}

func (f *fakeStore) Users() store.UserStore               { return nil }
func (f *fakeStore) ApiKeys() store.ApiKeyStore            { return nil }
func (f *fakeStore) Entitlements() store.EntitlementStore  { return f.entitlement }
func (f *fakeStore) Records() store.RecordStore            { return fakeRecordStore{} }
func (f *fakeStore) Close()                                {}

func (f *fakeStore) Formats() store.FormatStore { return fakeFormatStore{f} }

type fakeFormatStore struct{ f *fakeStore }

func (s fakeFormatStore) Create(ctx context.Context, format *domain.Format) error { return nil }
func (s fakeFormatStore) Get(ctx context.Context, id int64) (*domain.Format, error) {
	return s.f.formats[id], nil
}
func (s fakeFormatStore) ListReadable(ctx context.Context, userID uuid.UUID, isSuperuser bool) ([]domain.Format, error) {
	return nil, nil
}
func (s fakeFormatStore) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeStore) UploadSessions() store.UploadSessionStore { return fakeUploadSessionStore{f} }

type fakeUploadSessionStore struct{ f *fakeStore }

func (s fakeUploadSessionStore) CreateWithRecords(ctx context.Context, session *domain.UploadSession, records []domain.Record, chunkSize int) error {
	if s.f.createErr != nil {
		return s.f.createErr
	}
	session.ID = 1
	s.f.lastSession = session
	s.f.lastRecords = records
	s.f.lastChunk = chunkSize
	return nil
}
func (s fakeUploadSessionStore) Get(ctx context.Context, id int64) (*domain.UploadSession, error) {
	return s.f.lastSession, nil
}
func (s fakeUploadSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UploadSession, error) {
	return nil, nil
}
func (s fakeUploadSessionStore) Delete(ctx context.Context, id int64) error { return nil }
func (s fakeUploadSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	return 0, nil
}

type fakeRecordStore struct{}

func (fakeRecordStore) Query(ctx context.Context, spec query.Spec) (query.Result, error) {
	return query.Result{}, nil
}
func (fakeRecordStore) OpenPartitionCursor(ctx context.Context, spec query.Spec, partitionIndex, partitionCount int) (store.RecordCursor, error) {
	return nil, nil
}

func TestIngestRejectsUnknownFormat(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 500)
	user := domain.User{ID: uuid.New()}

	_, err := p.Ingest(context.Background(), user, 99, []map[string]any{{"amount": 1.0, "label": "a"}})
	if err == nil || err.Kind != apperr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestIngestRequiresWriteEntitlement(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 500)
	user := domain.User{ID: uuid.New()}

	_, err := p.Ingest(context.Background(), user, 1, []map[string]any{{"amount": 1.0, "label": "a"}})
	if err == nil || err.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestIngestRejectsNonConformingRows(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	user := domain.User{ID: uuid.New()}
	fs.entitlement.byUser[user.ID] = []domain.Access{domain.AccessWrite}
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 500)

	_, err := p.Ingest(context.Background(), user, 1, []map[string]any{{"amount": "not a number", "label": "a"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if fs.lastSession != nil {
		t.Fatal("expected no upload session to be created for a rejected batch")
	}
}

func TestIngestCreatesOneSessionForWholeBatch(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	user := domain.User{ID: uuid.New()}
	fs.entitlement.byUser[user.ID] = []domain.Access{domain.AccessWrite}
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 500)

	rows := []map[string]any{
		{"amount": 1.0, "label": "a"},
		{"amount": 2.0, "label": "b"},
	}
	outcome, err := p.Ingest(context.Background(), user, 1, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.RecordCount != 2 {
		t.Fatalf("expected RecordCount=2, got %d", outcome.RecordCount)
	}
	if len(fs.lastRecords) != 2 {
		t.Fatalf("expected 2 records passed to the store, got %d", len(fs.lastRecords))
	}
	for _, r := range fs.lastRecords {
		if r.FormatID != 1 {
			t.Fatalf("expected every record bound to format 1, got %d", r.FormatID)
		}
	}
}

func TestIngestWrapsStorageFailure(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	fs.createErr = context.DeadlineExceeded
	user := domain.User{ID: uuid.New()}
	fs.entitlement.byUser[user.ID] = []domain.Access{domain.AccessWrite}
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 500)

	_, err := p.Ingest(context.Background(), user, 1, []map[string]any{{"amount": 1.0, "label": "a"}})
	if err == nil || err.Kind != apperr.StorageError {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
