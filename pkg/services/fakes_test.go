package services

import (
	"context"
	"sync"
	"time"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/models"
)

// fakeColumnSource counts fetches and returns canned columns.
type fakeColumnSource struct {
	mu      sync.Mutex
	columns []models.ColumnDescriptor
	err     error
	calls   int
	tables  []models.TableIdentity
}

func (f *fakeColumnSource) FetchColumns(ctx context.Context, schema, table string) ([]models.ColumnDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tables = append(f.tables, models.TableIdentity{Schema: schema, Table: table})
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.ColumnDescriptor, len(f.columns))
	copy(out, f.columns)
	return out, nil
}

func (f *fakeColumnSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type statement struct {
	sql    string
	params []any
}

// fakeRowReader records statements and returns canned results.
type fakeRowReader struct {
	total     int64
	countErr  error
	rowSet    *datasource.RowSet
	selectErr error

	counts  []statement
	selects []statement
}

func (f *fakeRowReader) CountRows(ctx context.Context, sql string, params []any) (int64, error) {
	f.counts = append(f.counts, statement{sql: sql, params: params})
	return f.total, f.countErr
}

func (f *fakeRowReader) SelectRows(ctx context.Context, sql string, params []any) (*datasource.RowSet, error) {
	f.selects = append(f.selects, statement{sql: sql, params: params})
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if f.rowSet == nil {
		return &datasource.RowSet{}, nil
	}
	return f.rowSet, nil
}

func (f *fakeRowReader) statementCount() int {
	return len(f.counts) + len(f.selects)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func volumeColumns() []models.ColumnDescriptor {
	return []models.ColumnDescriptor{
		{Name: "id", DataType: "uuid"},
		{Name: "status", DataType: "text"},
		{Name: "age", DataType: "integer", IsNullable: true},
		{Name: "region", DataType: "text", IsNullable: true},
	}
}

var volumesTable = models.TableIdentity{Schema: "public", Table: "volumes"}
