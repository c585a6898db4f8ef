package query

import (
	"strings"
	"testing"
)

func TestCompileScopesToFormatID(t *testing.T) {
	compiled := Compile(Spec{FormatID: 42, Page: Page{PerPage: 20}})
	if compiled.Args[0] != int64(42) {
		t.Fatalf("expected first arg to be formatID 42, got %v", compiled.Args[0])
	}
	if !strings.Contains(compiled.Where, "record.format_id = $1") {
		t.Fatalf("expected format scoping predicate, got %q", compiled.Where)
	}
}

func TestCompileClausesAreOredPredicatesAnded(t *testing.T) {
	spec := Spec{
		FormatID: 1,
		Query: FilterQuery{Clauses: []Clause{
			{Args: []Predicate{{Column: "amount", ComparisonOp: OpGte, CompareAgainst: 10.0}, {Column: "label", ComparisonOp: OpEq, CompareAgainst: "x"}}},
			{Args: []Predicate{{Column: "label", ComparisonOp: OpEq, CompareAgainst: "y"}}},
		}},
		Page: Page{PerPage: 10},
	}
	compiled := Compile(spec)
	if !strings.Contains(compiled.Where, " OR ") {
		t.Fatalf("expected an OR between clauses, got %q", compiled.Where)
	}
	if !strings.Contains(compiled.Where, " AND ") {
		t.Fatalf("expected an AND within a clause, got %q", compiled.Where)
	}
	// formatID arg plus 3 predicate args
	if len(compiled.Args) != 4 {
		t.Fatalf("expected 4 args, got %d: %v", len(compiled.Args), compiled.Args)
	}
}

func TestCompileOrderByDescending(t *testing.T) {
	compiled := Compile(Spec{FormatID: 1, Page: Page{PerPage: 10, OrderBy: "-createdAt"}})
	if compiled.OrderBy != "record.created_at DESC" {
		t.Fatalf("expected descending created_at order, got %q", compiled.OrderBy)
	}
}

func TestCompilePaginationOffset(t *testing.T) {
	compiled := Compile(Spec{FormatID: 1, Page: Page{Page: 3, PerPage: 25}})
	if compiled.Limit != 25 || compiled.Offset != 75 {
		t.Fatalf("expected limit=25 offset=75, got limit=%d offset=%d", compiled.Limit, compiled.Offset)
	}
}

func TestCompileInOperatorEmptyListNeverMatches(t *testing.T) {
	spec := Spec{
		FormatID: 1,
		Query: FilterQuery{Clauses: []Clause{
			{Args: []Predicate{{Column: "label", ComparisonOp: OpIn, CompareAgainst: []any{}}}},
		}},
		Page: Page{PerPage: 10},
	}
	compiled := Compile(spec)
	if !strings.Contains(compiled.Where, "FALSE") {
		t.Fatalf("expected an empty IN list to compile to FALSE, got %q", compiled.Where)
	}
}
