// Package validate implements the schema validator: it checks inbound rows
// against a format's declared columns and types, batch-atomically.
package validate

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

// Diagnostic names one offending row/column pair.
type Diagnostic struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// Rows validates a batch of JSON objects against a format's schema. On any
// invalid row the whole batch is rejected with an Unprocessable error whose
// Details carries the sorted diagnostics; no partial success is possible.
//
// Validation fans out across a bounded worker pool sized to GOMAXPROCS;
// diagnostics are collected and reported in ascending row-index order
// regardless of completion order.
func Rows(f domain.Format, rows []map[string]any) *apperr.Error {
	if len(rows) == 0 {
		return apperr.New(apperr.Unprocessable, "batch must contain at least one row")
	}

	columnKind := make(map[string]domain.ColumnKind, len(f.Schema))
	for _, c := range f.Schema {
		columnKind[c.Name] = c.Kind
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(rows) {
		workers = len(rows)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		diag []Diagnostic
	)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				for _, d := range validateRow(row, rows[row], f.Schema, columnKind) {
					mu.Lock()
					diag = append(diag, d)
					mu.Unlock()
				}
			}
		}()
	}
	for i := range rows {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if len(diag) == 0 {
		return nil
	}
	sort.Slice(diag, func(i, j int) bool {
		if diag[i].Row != diag[j].Row {
			return diag[i].Row < diag[j].Row
		}
		return diag[i].Column < diag[j].Column
	})
	first := diag[0]
	return apperr.Newf(apperr.Unprocessable, "row:%d column:%s %s", first.Row, first.Column, first.Message).WithDetails(diag)
}

func validateRow(rowIdx int, row map[string]any, schema []domain.Column, columnKind map[string]domain.ColumnKind) []Diagnostic {
	var diag []Diagnostic

	seen := make(map[string]bool, len(row))
	for key := range row {
		seen[key] = true
		kind, known := columnKind[key]
		if !known {
			diag = append(diag, Diagnostic{Row: rowIdx, Column: key, Message: "unexpected column"})
			continue
		}
		if !typeMatches(row[key], kind) {
			diag = append(diag, Diagnostic{Row: rowIdx, Column: key, Message: fmt.Sprintf("expected %s", kind)})
		}
	}
	for _, c := range schema {
		if !seen[c.Name] {
			diag = append(diag, Diagnostic{Row: rowIdx, Column: c.Name, Message: "missing"})
		}
	}
	return diag
}

func typeMatches(v any, kind domain.ColumnKind) bool {
	switch kind {
	case domain.KindNumber:
		f, ok := v.(float64)
		return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
	case domain.KindString:
		_, ok := v.(string)
		return ok
	default:
		return false
	}
}
