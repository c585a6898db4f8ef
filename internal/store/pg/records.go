package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/query"
	"github.com/qazna-labs/recordvault/internal/store"
)

type recordStore struct {
	pool *pgxpool.Pool
}

// Query runs the compiled page query and, when requested, a concurrent
// COUNT(*) over the same predicate so callers see a consistent latency
// regardless of whether ReturnQueryCount is enabled.
func (s recordStore) Query(ctx context.Context, spec query.Spec) (query.Result, error) {
	compiled := query.Compile(spec)

	result := query.Result{Page: spec.Page.Page, PerPage: spec.Page.PerPage}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		sql := fmt.Sprintf(`
			SELECT record.id, record.format_id, record.upload_session_id, record.data, record.created_at
			FROM record
			WHERE %s
			ORDER BY %s
			LIMIT %d OFFSET %d`, compiled.Where, compiled.OrderBy, compiled.Limit, compiled.Offset)
		rows, err := s.pool.Query(gctx, sql, compiled.Args...)
		if err != nil {
			return apperr.Wrap(apperr.StorageError, "query records", err)
		}
		defer rows.Close()

		items := make([]domain.Record, 0, spec.Page.PerPage)
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			items = append(items, rec)
		}
		if err := rows.Err(); err != nil {
			return apperr.Wrap(apperr.StorageError, "read record rows", err)
		}
		result.Items = items
		return nil
	})

	if spec.Page.WithCount {
		group.Go(func() error {
			sql := fmt.Sprintf(`SELECT count(*) FROM record WHERE %s`, compiled.Where)
			var count int
			if err := s.pool.QueryRow(gctx, sql, compiled.Args...).Scan(&count); err != nil {
				return apperr.Wrap(apperr.StorageError, "count records", err)
			}
			itemCount := count
			pageCount := 0
			if spec.Page.PerPage > 0 {
				pageCount = (count + spec.Page.PerPage - 1) / spec.Page.PerPage
			}
			result.ItemCount = &itemCount
			result.PageCount = &pageCount
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return query.Result{}, err
	}
	return result, nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var rec domain.Record
	var data []byte
	if err := row.Scan(&rec.ID, &rec.FormatID, &rec.UploadSessionID, &data, &rec.CreatedAt); err != nil {
		return domain.Record{}, apperr.Wrap(apperr.StorageError, "scan record", err)
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return domain.Record{}, apperr.Wrap(apperr.StorageError, "decode record data", err)
	}
	return rec, nil
}

const cursorFetchBatch = 500

// OpenPartitionCursor declares a server-side cursor over the rows whose id
// falls in this partition (id % partitionCount = partitionIndex), so the N
// partitions of one streaming export are disjoint and their union is the
// full filtered result set.
func (s recordStore) OpenPartitionCursor(ctx context.Context, spec query.Spec, partitionIndex, partitionCount int) (store.RecordCursor, error) {
	compiled := query.Compile(spec)

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageError, "acquire connection for cursor", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, apperr.Wrap(apperr.StorageError, "begin cursor transaction", err)
	}

	partWhere := compiled.Where
	args := append([]any{}, compiled.Args...)
	if partitionCount > 1 {
		args = append(args, partitionCount, partitionIndex)
		partWhere = fmt.Sprintf("%s AND (record.id %% $%d) = $%d", compiled.Where, len(args)-1, len(args))
	}

	cursorName := fmt.Sprintf("recordvault_export_%d", partitionIndex)
	declareSQL := fmt.Sprintf(`
		DECLARE %s NO SCROLL CURSOR FOR
		SELECT record.id, record.format_id, record.upload_session_id, record.data, record.created_at
		FROM record
		WHERE %s
		ORDER BY %s`, cursorName, partWhere, compiled.OrderBy)

	if _, err := tx.Exec(ctx, declareSQL, args...); err != nil {
		_ = tx.Rollback(ctx)
		conn.Release()
		return nil, apperr.Wrap(apperr.StorageError, "declare partition cursor", err)
	}

	return &partitionCursor{conn: conn, tx: tx, cursorName: cursorName}, nil
}

type partitionCursor struct {
	conn       *pgxpool.Conn
	tx         pgx.Tx
	cursorName string
	buffer     []domain.Record
	pos        int
	exhausted  bool
}

func (c *partitionCursor) Next(ctx context.Context) (domain.Record, bool, error) {
	if c.pos < len(c.buffer) {
		rec := c.buffer[c.pos]
		c.pos++
		return rec, true, nil
	}
	if c.exhausted {
		return domain.Record{}, false, nil
	}

	rows, err := c.tx.Query(ctx, fmt.Sprintf("FETCH %d FROM %s", cursorFetchBatch, c.cursorName))
	if err != nil {
		return domain.Record{}, false, apperr.Wrap(apperr.StorageError, "fetch cursor batch", err)
	}
	buffer := make([]domain.Record, 0, cursorFetchBatch)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return domain.Record{}, false, err
		}
		buffer = append(buffer, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Record{}, false, apperr.Wrap(apperr.StorageError, "read cursor batch", err)
	}

	c.buffer = buffer
	c.pos = 0
	if len(buffer) < cursorFetchBatch {
		c.exhausted = true
	}
	if len(buffer) == 0 {
		return domain.Record{}, false, nil
	}
	rec := c.buffer[0]
	c.pos = 1
	return rec, true, nil
}

func (c *partitionCursor) Close(ctx context.Context) error {
	_, _ = c.tx.Exec(ctx, fmt.Sprintf("CLOSE %s", c.cursorName))
	err := c.tx.Commit(ctx)
	c.conn.Release()
	if err != nil {
		return apperr.Wrap(apperr.StorageError, "close partition cursor", err)
	}
	return nil
}
