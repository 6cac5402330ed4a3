package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wubenqing/console/pkg/jsonutil"
)

// Operator is a filter comparison operator from the closed allow-list.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLike           Operator = "LIKE"
	OpILike          Operator = "ILIKE"
	OpIn             Operator = "IN"
	OpIsNull         Operator = "IS NULL"
	OpIsNotNull      Operator = "IS NOT NULL"
)

var allowedOperators = map[Operator]struct{}{
	OpEqual:          {},
	OpNotEqual:       {},
	OpLessThan:       {},
	OpLessOrEqual:    {},
	OpGreaterThan:    {},
	OpGreaterOrEqual: {},
	OpLike:           {},
	OpILike:          {},
	OpIn:             {},
	OpIsNull:         {},
	OpIsNotNull:      {},
}

// ParseOperator upper-cases and trims raw and checks it against the allow-list.
// The normalized text is returned even when ok is false so callers can report it.
func ParseOperator(raw string) (op Operator, ok bool) {
	op = Operator(strings.TrimSpace(strings.ToUpper(raw)))
	_, ok = allowedOperators[op]
	return op, ok
}

// IsNullCheck reports whether the operator takes no value.
func (o Operator) IsNullCheck() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// Relation joins a condition to the one before it.
type Relation string

const (
	RelationAnd Relation = "AND"
	RelationOr  Relation = "OR"
)

// ParseRelation is case-insensitive; anything other than OR is AND.
func ParseRelation(raw string) Relation {
	if strings.EqualFold(strings.TrimSpace(raw), string(RelationOr)) {
		return RelationOr
	}
	return RelationAnd
}

// ValueKind tags the variant held by a FilterValue.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueScalar
	ValueList
)

// FilterValue is the value half of a filter condition: null, a scalar
// (string, int64, float64 or bool) or a list of scalars. It is decoded once at
// the HTTP boundary and only ever bound as query parameters.
type FilterValue struct {
	kind   ValueKind
	scalar any
	list   []any
}

// NullValue returns an absent value.
func NullValue() FilterValue {
	return FilterValue{}
}

// ScalarValue wraps a single scalar.
func ScalarValue(v any) FilterValue {
	if v == nil {
		return FilterValue{}
	}
	return FilterValue{kind: ValueScalar, scalar: v}
}

// ListValue wraps a list of scalars.
func ListValue(values ...any) FilterValue {
	list := make([]any, len(values))
	copy(list, values)
	return FilterValue{kind: ValueList, list: list}
}

func (v FilterValue) Kind() ValueKind { return v.kind }

// Scalar returns the scalar, or nil when the value is not a scalar.
func (v FilterValue) Scalar() any { return v.scalar }

// List returns a copy of the list, or nil when the value is not a list.
func (v FilterValue) List() []any {
	if v.kind != ValueList {
		return nil
	}
	list := make([]any, len(v.list))
	copy(list, v.list)
	return list
}

// IsEmpty reports a null value or an empty string scalar.
func (v FilterValue) IsEmpty() bool {
	switch v.kind {
	case ValueNull:
		return true
	case ValueScalar:
		s, ok := v.scalar.(string)
		return ok && s == ""
	}
	return false
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case []any:
		list := make([]any, 0, len(t))
		for i, item := range t {
			if item == nil {
				list = append(list, nil)
				continue
			}
			s, err := decodeScalar(item)
			if err != nil {
				return fmt.Errorf("value[%d]: %w", i, err)
			}
			list = append(list, s)
		}
		*v = FilterValue{kind: ValueList, list: list}
	default:
		s, err := decodeScalar(t)
		if err != nil {
			return err
		}
		*v = ScalarValue(s)
	}
	return nil
}

func decodeScalar(raw any) (any, error) {
	switch t := raw.(type) {
	case string, bool:
		return t, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// FilterCondition is one untrusted filter entry from a request.
type FilterCondition struct {
	Column   string      `json:"column"`
	Operator string      `json:"operator"`
	Value    FilterValue `json:"value"`
	Relation string      `json:"relation,omitempty"`
}

func (c *FilterCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column   json.RawMessage `json:"column"`
		Operator json.RawMessage `json:"operator"`
		Value    FilterValue     `json:"value"`
		Relation json.RawMessage `json:"relation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = FilterCondition{
		Column:   jsonutil.FlexibleStringValue(raw.Column),
		Operator: jsonutil.FlexibleStringValue(raw.Operator),
		Value:    raw.Value,
		Relation: jsonutil.FlexibleStringValue(raw.Relation),
	}
	return nil
}

// SortSpec requests ordering by one column.
type SortSpec struct {
	Column    string `json:"column"`
	Direction string `json:"direction,omitempty"`
}

func (s *SortSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column    json.RawMessage `json:"column"`
		Direction json.RawMessage `json:"direction"`
	}
	// A sort that is not an object is ignored, like an unknown sort column.
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = SortSpec{}
		return nil
	}
	*s = SortSpec{
		Column:    jsonutil.FlexibleStringValue(raw.Column),
		Direction: jsonutil.FlexibleStringValue(raw.Direction),
	}
	return nil
}

// PageValue is a lenient limit/offset input. Present is false when the field
// was absent or null; Valid is false when it was present but not a finite number.
type PageValue struct {
	Present bool
	Valid   bool
	Number  float64
}

// PageNumber returns a present, valid PageValue.
func PageNumber(n float64) PageValue {
	return PageValue{Present: true, Valid: true, Number: n}
}

func (p *PageValue) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*p = PageValue{}
		return nil
	}
	n, ok := jsonutil.FlexibleNumber(data)
	*p = PageValue{Present: true, Valid: ok, Number: n}
	return nil
}

// QueryRequest is the decoded body of a catalog query.
type QueryRequest struct {
	Conditions []FilterCondition `json:"conditions"`
	Limit      PageValue         `json:"limit"`
	Offset     PageValue         `json:"offset"`
	Sort       *SortSpec         `json:"sort,omitempty"`
}

func (r *QueryRequest) UnmarshalJSON(data []byte) error {
	// A well-formed body that is not an object carries no conditions.
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		*r = QueryRequest{}
		return nil
	}

	var raw struct {
		Conditions json.RawMessage `json:"conditions"`
		Limit      PageValue       `json:"limit"`
		Offset     PageValue       `json:"offset"`
		Sort       *SortSpec       `json:"sort"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var conditions []FilterCondition
	// Anything other than an array means no conditions.
	if trimmed := bytes.TrimSpace(raw.Conditions); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &conditions); err != nil {
			return fmt.Errorf("conditions: %w", err)
		}
	}

	*r = QueryRequest{
		Conditions: conditions,
		Limit:      raw.Limit,
		Offset:     raw.Offset,
		Sort:       raw.Sort,
	}
	return nil
}

// CompiledQuery is the parameterized form of a QueryRequest. Params lines up
// with the positional placeholders in WhereSQL; Limit and Offset are bound as
// the two placeholders that follow.
type CompiledQuery struct {
	WhereSQL   string
	OrderBySQL string
	Params     []any
	Limit      int
	Offset     int
}

// QueryResult is one page of matching rows plus the unpaginated total.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Total   int64            `json:"total"`
}
