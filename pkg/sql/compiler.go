package sql

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/models"
)

const (
	DefaultLimit = 200
	MaxLimit     = 1000
	MinLimit     = 1
)

// Where is a compiled filter: the condition text without the WHERE keyword,
// and the parameters bound to $1..$n in order.
type Where struct {
	SQL    string
	Params []any
}

// CompileConditions turns filter conditions into a parameterized WHERE body.
//
// Column names are only ever taken from columns, never from the request text,
// and values only ever travel through Params. The first failing condition
// aborts compilation.
func CompileConditions(conditions []models.FilterCondition, columns models.ColumnSet) (*Where, error) {
	parts := make([]string, 0, len(conditions)*2)
	params := make([]any, 0, len(conditions))

	placeholder := func(value any) string {
		params = append(params, bindText(value))
		return fmt.Sprintf("$%d", len(params))
	}

	for i, condition := range conditions {
		column := strings.TrimSpace(condition.Column)
		if column == "" || !columns.Has(column) {
			return nil, apperrors.UnknownColumn(column)
		}

		operator, ok := models.ParseOperator(condition.Operator)
		if !ok {
			return nil, apperrors.UnknownOperator(string(operator))
		}

		if i > 0 {
			parts = append(parts, string(models.ParseRelation(condition.Relation)))
		}

		columnSQL := QuoteIdentifier(column)

		switch {
		case operator.IsNullCheck():
			parts = append(parts, columnSQL+" "+string(operator))

		case operator == models.OpIn:
			values := inListValues(condition.Value)
			if len(values) == 0 {
				return nil, apperrors.EmptyInList(column)
			}
			placeholders := make([]string, len(values))
			for j, v := range values {
				placeholders[j] = placeholder(v)
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", columnSQL, strings.Join(placeholders, ", ")))

		default:
			value, ok := singleValue(condition.Value)
			if !ok {
				return nil, apperrors.MissingValue(column, string(operator))
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", columnSQL, operator, placeholder(value)))
		}
	}

	return &Where{SQL: strings.Join(parts, " "), Params: params}, nil
}

// inListValues accepts a list as-is, splits a comma-separated string, and
// wraps any other non-empty scalar.
func inListValues(value models.FilterValue) []any {
	switch value.Kind() {
	case models.ValueList:
		return value.List()
	case models.ValueScalar:
		if s, ok := value.Scalar().(string); ok {
			var out []any
			for _, item := range strings.Split(s, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			return out
		}
		return []any{value.Scalar()}
	}
	return nil
}

// singleValue returns the one value a comparison binds. A one-element list is
// unwrapped; null, "" and lists of any other length are rejected.
func singleValue(value models.FilterValue) (any, bool) {
	if value.Kind() == models.ValueList {
		list := value.List()
		if len(list) != 1 {
			return nil, false
		}
		value = models.ScalarValue(list[0])
	}
	if value.IsEmpty() {
		return nil, false
	}
	return value.Scalar(), true
}

// bindText renders a scalar in its canonical text form so the server infers
// the parameter type from the column it is compared against. nil stays nil.
func bindText(value any) any {
	switch v := value.(type) {
	case nil, string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// BuildOrderBy returns an ORDER BY clause, or "" when sort is nil or names a
// column outside columns. Direction is DESC only when asked for, else ASC.
func BuildOrderBy(sort *models.SortSpec, columns models.ColumnSet) string {
	if sort == nil || sort.Column == "" || !columns.Has(sort.Column) {
		return ""
	}
	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(sort.Direction), "DESC") {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", QuoteIdentifier(sort.Column), direction)
}

// ClampLimit applies the default and [MinLimit, MaxLimit] bounds. Every
// finite number is clamped; only non-finite or unparseable input gets the default.
func ClampLimit(v models.PageValue) int {
	n, ok := pageNumber(v)
	if !ok {
		return DefaultLimit
	}
	if n < MinLimit {
		return MinLimit
	}
	if n >= MaxLimit {
		return MaxLimit
	}
	return int(n)
}

// ClampOffset applies the default of 0 and a lower bound of 0. Offsets beyond
// the int range saturate at math.MaxInt.
func ClampOffset(v models.PageValue) int {
	n, ok := pageNumber(v)
	if !ok || n < 0 {
		return 0
	}
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

func pageNumber(v models.PageValue) (float64, bool) {
	if !v.Present || !v.Valid {
		return 0, false
	}
	if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return 0, false
	}
	return v.Number, true
}

// BuildCountSQL returns the COUNT statement for a compiled filter. It binds
// the same parameters as the WHERE clause.
func BuildCountSQL(table models.TableIdentity, whereSQL string) string {
	return "SELECT COUNT(*) AS total FROM " + QualifiedTableName(table) + whereClause(whereSQL)
}

// BuildSelectSQL returns the page statement and its full parameter list,
// with limit and offset bound as the last two placeholders.
func BuildSelectSQL(table models.TableIdentity, q *models.CompiledQuery) (string, []any) {
	params := make([]any, 0, len(q.Params)+2)
	params = append(params, q.Params...)
	params = append(params, q.Limit, q.Offset)

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(QualifiedTableName(table))
	b.WriteString(whereClause(q.WhereSQL))
	if q.OrderBySQL != "" {
		b.WriteString(" ")
		b.WriteString(q.OrderBySQL)
	}
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(params)-1, len(params))

	return b.String(), params
}

func whereClause(whereSQL string) string {
	if whereSQL == "" {
		return ""
	}
	return " WHERE " + whereSQL
}
