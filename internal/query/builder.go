package query

import (
	"fmt"
	"strings"

	"github.com/qazna-labs/recordvault/internal/domain"
)

// Spec is a fully validated query ready for compilation and execution.
type Spec struct {
	FormatID int64
	Query    FilterQuery
	Page     Page
}

// Result is the response shape of a paginated query.
type Result struct {
	Items     []domain.Record
	Page      int
	PerPage   int
	ItemCount *int
	PageCount *int
}

// Compiled holds a parameterised SQL WHERE clause (without the leading
// "WHERE") and its positional arguments, plus ORDER BY / LIMIT / OFFSET
// fragments. Placeholders start at $1.
type Compiled struct {
	Where     string
	Args      []any
	OrderBy   string
	Limit     int
	Offset    int
}

// Compile translates a validated Spec into a single parameterised
// expression: never string-concatenates user-controlled values into SQL.
func Compile(spec Spec) Compiled {
	var args []any
	args = append(args, spec.FormatID)

	where := "record.format_id = $1"

	if clause := compileClauses(spec.Query.Clauses, &args); clause != "" {
		where += " AND (" + clause + ")"
	}
	if spec.Query.UploadSession != nil {
		if frag := compileSessionFilter(*spec.Query.UploadSession, &args); frag != "" {
			where += " AND " + frag
		}
	}

	orderBy := "record.created_at ASC, record.id ASC"
	if spec.Page.OrderBy != "" {
		desc := strings.HasPrefix(spec.Page.OrderBy, "-")
		col := strings.TrimPrefix(spec.Page.OrderBy, "-")
		sqlCol := map[string]string{"createdAt": "record.created_at", "id": "record.id"}[col]
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", sqlCol, dir)
	}

	return Compiled{
		Where:   where,
		Args:    args,
		OrderBy: orderBy,
		Limit:   spec.Page.PerPage,
		Offset:  spec.Page.Page * spec.Page.PerPage,
	}
}

// compileClauses emits "(p1 AND p2) OR (p3 AND p4) ..." — an OR over the
// clauses, each an AND over its predicates.
func compileClauses(clauses []Clause, args *[]any) string {
	if len(clauses) == 0 {
		return ""
	}
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		predParts := make([]string, 0, len(clause.Args))
		for _, p := range clause.Args {
			predParts = append(predParts, compilePredicate(p, args))
		}
		if len(predParts) == 0 {
			continue
		}
		parts = append(parts, "("+strings.Join(predParts, " AND ")+")")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " OR ")
}

func compilePredicate(p Predicate, args *[]any) string {
	// data->>'column' extracts the JSONB field as text; numeric columns are
	// cast to double precision for comparison.
	field := fmt.Sprintf("record.data->>%s", quoteLiteral(p.Column))
	numericField := fmt.Sprintf("CAST(%s AS DOUBLE PRECISION)", field)

	switch p.ComparisonOp {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		op := map[Operator]string{OpEq: "=", OpNe: "<>", OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">="}[p.ComparisonOp]
		if isNumber(p.CompareAgainst) {
			*args = append(*args, p.CompareAgainst)
			return fmt.Sprintf("%s %s $%d", numericField, op, len(*args))
		}
		*args = append(*args, p.CompareAgainst)
		return fmt.Sprintf("%s %s $%d", field, op, len(*args))
	case OpContains:
		*args = append(*args, "%"+escapeLike(fmt.Sprint(p.CompareAgainst))+"%")
		return fmt.Sprintf("%s LIKE $%d", field, len(*args))
	case OpStartsWith:
		*args = append(*args, escapeLike(fmt.Sprint(p.CompareAgainst))+"%")
		return fmt.Sprintf("%s LIKE $%d", field, len(*args))
	case OpEndsWith:
		*args = append(*args, "%"+escapeLike(fmt.Sprint(p.CompareAgainst)))
		return fmt.Sprintf("%s LIKE $%d", field, len(*args))
	case OpIn, OpNotIn:
		items, _ := p.CompareAgainst.([]any)
		placeholders := make([]string, 0, len(items))
		numeric := len(items) > 0 && isNumber(items[0])
		for _, item := range items {
			*args = append(*args, item)
			if numeric {
				placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
			} else {
				placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
			}
		}
		f := field
		if numeric {
			f = numericField
		}
		kw := "IN"
		if p.ComparisonOp == OpNotIn {
			kw = "NOT IN"
		}
		if len(placeholders) == 0 {
			if kw == "IN" {
				return "FALSE"
			}
			return "TRUE"
		}
		return fmt.Sprintf("%s %s (%s)", f, kw, strings.Join(placeholders, ","))
	default:
		return "FALSE"
	}
}

func compileSessionFilter(f SessionFilter, args *[]any) string {
	var parts []string
	if f.CreatedAtGte != nil {
		*args = append(*args, *f.CreatedAtGte)
		parts = append(parts, fmt.Sprintf("upload_session.created_at >= $%d", len(*args)))
	}
	if f.CreatedAtLte != nil {
		*args = append(*args, *f.CreatedAtLte)
		parts = append(parts, fmt.Sprintf("upload_session.created_at <= $%d", len(*args)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "record.upload_session_id IN (SELECT id FROM upload_session WHERE " + strings.Join(parts, " AND ") + ")"
}

// quoteLiteral escapes a column name for embedding as a JSON key literal.
// Column names are validated against the format schema before compilation,
// so this only guards against embedded quote characters.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
