package datasource

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/wubenqing/console/pkg/models"
)

// Querier is the part of a pgx pool or connection the catalog core uses.
// *pgxpool.Pool and *pgx.Conn both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConnectionProvider hands out the shared catalog connection.
type ConnectionProvider interface {
	// Querier returns the shared query interface, creating it on first use.
	// Configuration errors wrap apperrors.ErrInvalidConfig.
	Querier(ctx context.Context) (Querier, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
}

// ColumnSource fetches the column metadata of one table.
type ColumnSource interface {
	// FetchColumns returns the columns of schema.table in ordinal order.
	// A missing or unreadable table yields an empty slice, not an error.
	FetchColumns(ctx context.Context, schema, table string) ([]models.ColumnDescriptor, error)
}

// RowReader runs the two catalog statements.
type RowReader interface {
	// CountRows runs a single-value COUNT statement.
	CountRows(ctx context.Context, sql string, params []any) (int64, error)

	// SelectRows runs a SELECT and returns every row of the result.
	SelectRows(ctx context.Context, sql string, params []any) (*RowSet, error)
}

// RowSet is a fully read result with engine-reported column names.
type RowSet struct {
	Columns []string
	Rows    []map[string]any
}
