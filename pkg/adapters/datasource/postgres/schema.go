package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/logging"
	"github.com/wubenqing/console/pkg/models"
)

const columnsQuery = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES' AS is_nullable
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position
`

// ColumnSource reads column metadata from information_schema.
type ColumnSource struct {
	provider datasource.ConnectionProvider
	logger   *zap.Logger
}

var _ datasource.ColumnSource = (*ColumnSource)(nil)

// NewColumnSource creates a ColumnSource. If logger is nil, a no-op logger is used.
func NewColumnSource(provider datasource.ConnectionProvider, logger *zap.Logger) *ColumnSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColumnSource{provider: provider, logger: logger}
}

// FetchColumns returns the columns of schema.table in ordinal order.
// information_schema only lists columns the role can see, so a missing table
// and a table without privileges both return an empty slice.
func (s *ColumnSource) FetchColumns(ctx context.Context, schema, table string) ([]models.ColumnDescriptor, error) {
	q, err := s.provider.Querier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		s.logger.Error("Failed to query catalog columns",
			zap.String("schema", schema),
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)))
		return nil, &apperrors.QueryError{Op: "query columns", Err: err}
	}
	defer rows.Close()

	columns := make([]models.ColumnDescriptor, 0)
	for rows.Next() {
		var c models.ColumnDescriptor
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable); err != nil {
			return nil, &apperrors.QueryError{Op: "scan column", Err: err}
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, &apperrors.QueryError{Op: "iterate columns", Err: err}
	}

	if len(columns) == 0 {
		s.logger.Warn("Catalog table has no visible columns",
			zap.String("table", fmt.Sprintf("%s.%s", schema, table)))
	}

	return columns, nil
}
