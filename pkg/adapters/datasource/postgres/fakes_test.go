package postgres

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wubenqing/console/pkg/adapters/datasource"
)

// fakeProvider returns a fixed Querier or error.
type fakeProvider struct {
	querier datasource.Querier
	err     error
}

func (p *fakeProvider) Querier(ctx context.Context) (datasource.Querier, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.querier, nil
}

func (p *fakeProvider) Ping(ctx context.Context) error { return p.err }

type recordedCall struct {
	sql  string
	args []any
}

// fakeQuerier serves canned results and records every statement.
type fakeQuerier struct {
	rows     *fakeRows
	row      *fakeRow
	queryErr error
	calls    []recordedCall
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return q.rows, nil
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.calls = append(q.calls, recordedCall{sql: sql, args: args})
	return q.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

// fakeRows implements pgx.Rows over in-memory values.
type fakeRows struct {
	columns []string
	values  [][]any
	pos     int
	err     error // returned by Err after iteration
	closed  bool
}

func newFakeRows(columns []string, values ...[]any) *fakeRows {
	return &fakeRows{columns: columns, values: values}
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.values[r.pos-1])
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", values[i], target.Type())
		}
		target.Set(v)
	}
	return nil
}
