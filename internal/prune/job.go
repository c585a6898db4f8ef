// Package prune implements the periodic deletion of upload sessions (and,
// by cascade, their records) past the configured retention horizon.
package prune

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/qazna-labs/recordvault/internal/store"
)

// Job runs the prune loop. Concurrent runs are forbidden: if a run is still
// active when the next tick fires, the tick is skipped.
type Job struct {
	sessions  store.UploadSessionStore
	interval  time.Duration
	timeout   time.Duration
	retention time.Duration
	batchSize int
	logger    *zap.Logger

	running atomic.Bool
}

// New builds a prune Job from the configured interval/timeout/retention.
func New(sessions store.UploadSessionStore, interval, timeout, retention time.Duration, batchSize int, logger *zap.Logger) *Job {
	return &Job{
		sessions:  sessions,
		interval:  interval,
		timeout:   timeout,
		retention: retention,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run blocks, ticking every interval until ctx is cancelled.
func (j *Job) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *Job) tick(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("prune run skipped: previous run still active")
		return
	}
	defer j.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	deleted, err := j.runOnce(runCtx)
	if err != nil {
		j.logger.Error("prune run failed", zap.Error(err), zap.Int("deleted", deleted))
		return
	}
	j.logger.Info("prune run complete", zap.Int("deleted", deleted))
}

// runOnce deletes sessions older than the retention horizon in small
// batches, each its own transaction, so it never holds a long lock and
// never blocks an active export.
func (j *Job) runOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-j.retention)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := j.sessions.DeleteOlderThan(ctx, cutoff, j.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < j.batchSize {
			return total, nil
		}
	}
}
