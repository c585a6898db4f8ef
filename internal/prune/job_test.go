package prune

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qazna-labs/recordvault/internal/domain"
)

type fakeSessionStore struct {
	deleteCalls []int
	remaining   int
	err         error
}

func (f *fakeSessionStore) CreateWithRecords(ctx context.Context, session *domain.UploadSession, records []domain.Record, chunkSize int) error {
	return nil
}
func (f *fakeSessionStore) Get(ctx context.Context, id int64) (*domain.UploadSession, error) {
	return nil, nil
}
func (f *fakeSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UploadSession, error) {
	return nil, nil
}
func (f *fakeSessionStore) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := batchSize
	if f.remaining < n {
		n = f.remaining
	}
	f.remaining -= n
	f.deleteCalls = append(f.deleteCalls, n)
	return n, nil
}

func TestRunOnceLoopsUntilBatchIsPartial(t *testing.T) {
	sessions := &fakeSessionStore{remaining: 25}
	j := New(sessions, time.Minute, time.Minute, time.Hour, 10, zap.NewNop())

	deleted, err := j.runOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 25 {
		t.Fatalf("expected 25 sessions deleted, got %d", deleted)
	}
	if len(sessions.deleteCalls) != 3 {
		t.Fatalf("expected 3 batches (10,10,5), got %v", sessions.deleteCalls)
	}
}

func TestRunOnceStopsOnStorageError(t *testing.T) {
	sessions := &fakeSessionStore{err: errors.New("boom")}
	j := New(sessions, time.Minute, time.Minute, time.Hour, 10, zap.NewNop())

	_, err := j.runOnce(context.Background())
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestTickSkipsConcurrentRun(t *testing.T) {
	sessions := &fakeSessionStore{remaining: 0}
	j := New(sessions, time.Minute, time.Minute, time.Hour, 10, zap.NewNop())
	j.running.Store(true)

	j.tick(context.Background())

	if !j.running.Load() {
		t.Fatal("expected running flag to remain true, tick should have been skipped")
	}
}
