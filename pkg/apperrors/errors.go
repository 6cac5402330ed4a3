package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid catalog configuration")
	ErrInvalidIdentifier = fmt.Errorf("%w: invalid identifier", ErrInvalidConfig)
	ErrUnknownColumn     = errors.New("unknown column")
	ErrUnknownOperator   = errors.New("unknown operator")
	ErrEmptyInList       = errors.New("empty IN list")
	ErrMissingValue      = errors.New("missing value")
	ErrQueryFailed       = errors.New("query failed")
)

// FieldError reports a rejected input together with the field it came from.
// Err is always one of the sentinels above so callers can use errors.Is.
type FieldError struct {
	Err    error
	Field  string
	Value  string
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%s: %s %q", e.Err, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// QueryError wraps a database failure. The wrapped driver error is meant for
// logs only and must never be sent to a client.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is makes every QueryError match ErrQueryFailed.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// IsValidation reports whether err is a client-input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrUnknownOperator) ||
		errors.Is(err, ErrEmptyInList) ||
		errors.Is(err, ErrMissingValue)
}

// UnknownColumn returns the error for a column outside the fetched schema.
func UnknownColumn(name string) error {
	return &FieldError{
		Err:    ErrUnknownColumn,
		Field:  "column",
		Value:  name,
		Detail: fmt.Sprintf("Invalid column name: %s", orUnknown(name)),
	}
}

// UnknownOperator returns the error for an operator outside the allow-list.
func UnknownOperator(name string) error {
	return &FieldError{
		Err:    ErrUnknownOperator,
		Field:  "operator",
		Value:  name,
		Detail: fmt.Sprintf("Invalid operator: %s", orUnknown(name)),
	}
}

// EmptyInList returns the error for an IN condition with no values.
func EmptyInList(column string) error {
	return &FieldError{
		Err:    ErrEmptyInList,
		Field:  "value",
		Value:  column,
		Detail: fmt.Sprintf("IN operator requires a non-empty value list for %s.", column),
	}
}

// MissingValue returns the error for a comparison without a usable value.
func MissingValue(column, operator string) error {
	return &FieldError{
		Err:    ErrMissingValue,
		Field:  "value",
		Value:  column,
		Detail: fmt.Sprintf("Value is required for %s %s.", column, operator),
	}
}

// InvalidIdentifier returns the error for a schema or table name that fails
// the identifier grammar.
func InvalidIdentifier(label, value string) error {
	return &FieldError{
		Err:    ErrInvalidIdentifier,
		Field:  label,
		Value:  value,
		Detail: fmt.Sprintf("Invalid %s: %s", label, value),
	}
}

// MissingConfig returns the error for a required configuration field that is empty.
func MissingConfig(field string) error {
	return &FieldError{
		Err:   ErrInvalidConfig,
		Field: field,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
