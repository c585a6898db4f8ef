// Package query defines the DNF filter-query language and compiles
// validated queries into parameterised SQL fragments. It has no storage
// dependency: the builder returns a WHERE clause and its argument list for
// the store layer to embed into a full statement.
package query

import (
	"time"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/domain"
)

// Operator is one comparison operator of a predicate.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
)

var comparableOps = map[Operator]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
}

var stringOnlyOps = map[Operator]bool{
	OpContains: true, OpStartsWith: true, OpEndsWith: true,
}

var listOps = map[Operator]bool{
	OpIn: true, OpNotIn: true,
}

// Predicate is one leaf comparison of the filter language.
type Predicate struct {
	Column          string   `json:"column"`
	ComparisonOp    Operator `json:"comparisonOperator"`
	CompareAgainst  any      `json:"compareAgainst"`
}

// Clause is an AND of predicates; a Query is an OR of Clauses (DNF).
type Clause struct {
	Args []Predicate `json:"args"`
}

// SessionFilter restricts matches to records from upload sessions created
// within the given window.
type SessionFilter struct {
	CreatedAtGte *time.Time `json:"createdAtGte,omitempty"`
	CreatedAtLte *time.Time `json:"createdAtLte,omitempty"`
}

// FilterQuery is the request body of /record/filter and /record/filter-stream.
type FilterQuery struct {
	Clauses       []Clause       `json:"args"`
	UploadSession *SessionFilter `json:"uploadSession,omitempty"`
}

// allowed order-by columns.
var orderableColumns = map[string]bool{
	"createdAt": true,
	"id":        true,
}

// Page describes validated pagination and ordering parameters.
type Page struct {
	Page        int
	PerPage     int
	OrderBy     string // e.g. "-createdAt"
	WithCount   bool
}

// Validate checks the query against a format's schema: unknown columns,
// type-incompatible predicates, and malformed operator/argument shapes are
// all rejected with BadRequest, matching the column-validation and
// type-compatibility contracts of the filter language.
func (q FilterQuery) Validate(f domain.Format) *apperr.Error {
	for ci, clause := range q.Clauses {
		for pi, pred := range clause.Args {
			kind, ok := f.ColumnKind(pred.Column)
			if !ok {
				return apperr.Newf(apperr.BadRequest, "clause %d predicate %d: unknown column %q", ci, pi, pred.Column)
			}
			if err := validatePredicate(pred, kind); err != nil {
				return apperr.Newf(apperr.BadRequest, "clause %d predicate %d: %s", ci, pi, err.Message)
			}
		}
	}
	return nil
}

func validatePredicate(p Predicate, kind domain.ColumnKind) *apperr.Error {
	switch {
	case comparableOps[p.ComparisonOp]:
		if kind == domain.KindNumber {
			if !isNumber(p.CompareAgainst) {
				return apperr.New(apperr.BadRequest, "expected numeric compareAgainst for Number column")
			}
			return nil
		}
		if !isString(p.CompareAgainst) {
			return apperr.New(apperr.BadRequest, "expected string compareAgainst for String column")
		}
		return nil
	case stringOnlyOps[p.ComparisonOp]:
		if kind != domain.KindString {
			return apperr.New(apperr.BadRequest, "operator only valid on String columns")
		}
		if !isString(p.CompareAgainst) {
			return apperr.New(apperr.BadRequest, "expected string compareAgainst")
		}
		return nil
	case listOps[p.ComparisonOp]:
		items, ok := p.CompareAgainst.([]any)
		if !ok {
			return apperr.New(apperr.BadRequest, "expected list compareAgainst")
		}
		for _, item := range items {
			if kind == domain.KindNumber && !isNumber(item) {
				return apperr.New(apperr.BadRequest, "list element must be numeric for Number column")
			}
			if kind == domain.KindString && !isString(item) {
				return apperr.New(apperr.BadRequest, "list element must be a string for String column")
			}
		}
		return nil
	default:
		return apperr.Newf(apperr.BadRequest, "unknown comparison operator %q", p.ComparisonOp)
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	default:
		return false
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// ValidateOrderBy checks orderBy against the allow-list, tolerating an
// optional leading '-' for descending order.
func ValidateOrderBy(orderBy string) *apperr.Error {
	if orderBy == "" {
		return nil
	}
	col := orderBy
	if col[0] == '-' {
		col = col[1:]
	}
	if !orderableColumns[col] {
		return apperr.Newf(apperr.BadRequest, "invalid orderBy %q", orderBy)
	}
	return nil
}
