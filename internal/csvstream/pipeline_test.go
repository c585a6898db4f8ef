package csvstream

import (
	"bytes"
	"context"
	"strings"
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

// fakeCursor replays a fixed slice of records for one partition.
type fakeCursor struct {
	records []domain.Record
	i       int
}

func (c *fakeCursor) Next(ctx context.Context) (domain.Record, bool, error) {
	if c.i >= len(c.records) {
		return domain.Record{}, false, nil
	}
	r := c.records[c.i]
	c.i++
	return r, true, nil
}
func (c *fakeCursor) Close(ctx context.Context) error { return nil }

type fakeStore struct {
	formats      map[int64]*domain.Format
	entitlement  *fakeEntitlementStore
	partitions   map[int][]domain.Record
	cursorErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		formats:     map[int64]*domain.Format{},
		entitlement: &fakeEntitlementStore{byUser: map[uuid.UUID][]domain.Access{}},
		partitions:  map[int][]domain.Record{},
	}
}

func (f *fakeStore) Users() store.UserStore                   { return nil }
func (f *fakeStore) ApiKeys() store.ApiKeyStore                { return nil }
func (f *fakeStore) Entitlements() store.EntitlementStore      { return f.entitlement }
func (f *fakeStore) UploadSessions() store.UploadSessionStore  { return nil }
func (f *fakeStore) Close()                                    {}

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

func (f *fakeStore) Records() store.RecordStore { return fakeRecordStore{f} }

type fakeRecordStore struct{ f *fakeStore }

func (s fakeRecordStore) Query(ctx context.Context, spec query.Spec) (query.Result, error) {
	return query.Result{}, nil
}
func (s fakeRecordStore) OpenPartitionCursor(ctx context.Context, spec query.Spec, partitionIndex, partitionCount int) (store.RecordCursor, error) {
	if s.f.cursorErr != nil {
		return nil, s.f.cursorErr
	}
	return &fakeCursor{records: s.f.partitions[partitionIndex]}, nil
}

func TestStreamRejectsUnknownFormat(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 2, 2, 4)
	user := domain.User{ID: uuid.New()}

	var buf bytes.Buffer
	err := p.Stream(context.Background(), user, 99, query.FilterQuery{}, &buf)
	if err == nil || err.Kind != apperr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestStreamRequiresReadEntitlement(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 2, 2, 4)
	user := domain.User{ID: uuid.New()}

	var buf bytes.Buffer
	err := p.Stream(context.Background(), user, 1, query.FilterQuery{}, &buf)
	if err == nil || err.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestStreamWritesHeaderAndAllPartitionRows(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	user := domain.User{ID: uuid.New()}
	fs.entitlement.byUser[user.ID] = []domain.Access{domain.AccessRead}
	fs.partitions[0] = []domain.Record{
		{Data: map[string]any{"amount": 1.0, "label": "a"}},
	}
	fs.partitions[1] = []domain.Record{
		{Data: map[string]any{"amount": 2.0, "label": "b"}},
	}
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 2, 2, 4)

	var buf bytes.Buffer
	if err := p.Stream(context.Background(), user, 1, query.FilterQuery{}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), out)
	}
	if lines[0] != "amount,label" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

func TestStreamPropagatesCursorFailure(t *testing.T) {
	fs := newFakeStore()
	fs.formats[1] = testFormat(1)
	fs.cursorErr = context.DeadlineExceeded
	user := domain.User{ID: uuid.New()}
	fs.entitlement.byUser[user.ID] = []domain.Access{domain.AccessRead}
	p := New(fs, entitlement.New(fs.entitlement, time.Hour), 2, 2, 4)

	var buf bytes.Buffer
	err := p.Stream(context.Background(), user, 1, query.FilterQuery{}, &buf)
	if err == nil || err.Kind != apperr.StorageError {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
