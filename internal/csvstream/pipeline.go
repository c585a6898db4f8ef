// Package csvstream implements the bounded-memory producer/worker/collector
// CSV export pipeline described by the streaming component design.
package csvstream

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/query"
	"github.com/qazna-labs/recordvault/internal/store"
)

// Pipeline streams a filter-query result set as CSV using a fixed number
// of partitioned producer goroutines and a bounded transform concurrency.
type Pipeline struct {
	store            store.Store
	resolver         *entitlement.Resolver
	producers        int
	transformWorkers int
	queueDepth       int
}

// New builds a Pipeline from the configured worker counts and queue depth.
func New(s store.Store, resolver *entitlement.Resolver, producers, transformWorkers, queueDepth int) *Pipeline {
	if producers < 1 {
		producers = 1
	}
	if transformWorkers < 1 {
		transformWorkers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &Pipeline{store: s, resolver: resolver, producers: producers, transformWorkers: transformWorkers, queueDepth: queueDepth}
}

// Stream writes the CSV header followed by every matching record to w, in
// deterministic order by partition index. Cancelling ctx (e.g. on client
// disconnect) stops all producers and transform workers and drains their
// queues; no partial row is ever written.
func (p *Pipeline) Stream(ctx context.Context, user domain.User, formatID int64, fq query.FilterQuery, w io.Writer) *apperr.Error {
	format, err := p.store.Formats().Get(ctx, formatID)
	if err != nil || format == nil {
		return apperr.New(apperr.NotFound, "format not found")
	}
	if aerr := p.resolver.Require(ctx, user, format.ID, domain.AccessRead); aerr != nil {
		return aerr
	}
	if aerr := fq.Validate(*format); aerr != nil {
		return aerr
	}

	spec := query.Spec{FormatID: format.ID, Query: fq}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	partitionCount := p.producers
	channels := make([]chan []byte, partitionCount)
	errCh := make(chan error, partitionCount)
	sem := make(chan struct{}, p.transformWorkers)

	var wg sync.WaitGroup
	for i := 0; i < partitionCount; i++ {
		ch := make(chan []byte, p.queueDepth)
		channels[i] = ch
		wg.Add(1)
		go p.runPartition(ctx, &wg, spec, format.Schema, i, partitionCount, ch, sem, errCh)
	}

	csvW := csv.NewWriter(w)
	csvW.UseCRLF = true
	header := make([]string, len(format.Schema))
	for i, c := range format.Schema {
		header[i] = c.Name
	}
	if err := csvW.Write(header); err != nil {
		cancel()
		wg.Wait()
		return apperr.Wrap(apperr.StorageError, "write CSV header", err)
	}
	csvW.Flush()

	for _, ch := range channels {
		for line := range ch {
			if _, err := w.Write(line); err != nil {
				cancel()
				wg.Wait()
				return apperr.Wrap(apperr.StorageError, "write CSV row", err)
			}
		}
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return apperr.Wrap(apperr.StorageError, "streaming partition failed", err)
	default:
		return nil
	}
}

func (p *Pipeline) runPartition(ctx context.Context, wg *sync.WaitGroup, spec query.Spec, schema []domain.Column, partition, partitionCount int, out chan<- []byte, sem chan struct{}, errCh chan<- error) {
	defer wg.Done()
	defer close(out)

	cursor, err := p.store.Records().OpenPartitionCursor(ctx, spec, partition, partitionCount)
	if err != nil {
		select {
		case errCh <- err:
		default:
		}
		return
	}
	defer cursor.Close(ctx)

	for {
		rec, ok, err := cursor.Next(ctx)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		if !ok {
			return
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		line, encErr := encodeRow(schema, rec.Data)
		<-sem
		if encErr != nil {
			select {
			case errCh <- encErr:
			default:
			}
			return
		}

		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}

func encodeRow(schema []domain.Column, data map[string]any) ([]byte, error) {
	fields := make([]string, len(schema))
	for i, c := range schema {
		fields[i] = formatValue(data[c.Name])
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
