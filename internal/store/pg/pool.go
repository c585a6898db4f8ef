package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qazna-labs/recordvault/internal/store"
)

// Store is the pgxpool-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects a pool sized by minConn/maxConn. acquireTimeout is accepted
// but not applied: a wait for a free connection is bounded only by the
// caller's context, and no pool wait is reported as apperr.Timeout.
func Open(ctx context.Context, dsn string, minConn, maxConn int32, acquireTimeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MinConns = minConn
	cfg.MaxConns = maxConn
	cfg.HealthCheckPeriod = time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) Users() store.UserStore                     { return userStore{pool: s.pool} }
func (s *Store) ApiKeys() store.ApiKeyStore                 { return apiKeyStore{pool: s.pool} }
func (s *Store) Formats() store.FormatStore                 { return formatStore{pool: s.pool} }
func (s *Store) Entitlements() store.EntitlementStore       { return entitlementStore{pool: s.pool} }
func (s *Store) UploadSessions() store.UploadSessionStore   { return uploadSessionStore{pool: s.pool} }
func (s *Store) Records() store.RecordStore                 { return recordStore{pool: s.pool} }
