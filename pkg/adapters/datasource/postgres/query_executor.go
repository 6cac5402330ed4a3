package postgres

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/logging"
)

// RowReader runs catalog statements through the provider's pool.
type RowReader struct {
	provider datasource.ConnectionProvider
	logger   *zap.Logger
}

var _ datasource.RowReader = (*RowReader)(nil)

// NewRowReader creates a RowReader. If logger is nil, a no-op logger is used.
func NewRowReader(provider datasource.ConnectionProvider, logger *zap.Logger) *RowReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowReader{provider: provider, logger: logger}
}

// CountRows runs a COUNT statement and returns its single value.
func (r *RowReader) CountRows(ctx context.Context, sqlQuery string, params []any) (int64, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return 0, err
	}

	r.logger.Debug("Counting catalog rows", logging.QueryFields(sqlQuery, params)...)

	var total int64
	if err := q.QueryRow(ctx, sqlQuery, params...).Scan(&total); err != nil {
		r.logDriverError("count rows", sqlQuery, err)
		return 0, &apperrors.QueryError{Op: "count rows", Err: err}
	}
	return total, nil
}

// SelectRows runs a SELECT and reads every row into a map keyed by the
// column names the server reports.
func (r *RowReader) SelectRows(ctx context.Context, sqlQuery string, params []any) (*datasource.RowSet, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Selecting catalog rows", logging.QueryFields(sqlQuery, params)...)

	rows, err := q.Query(ctx, sqlQuery, params...)
	if err != nil {
		r.logDriverError("select rows", sqlQuery, err)
		return nil, &apperrors.QueryError{Op: "select rows", Err: err}
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &apperrors.QueryError{Op: "read row values", Err: err}
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		r.logDriverError("iterate rows", sqlQuery, err)
		return nil, &apperrors.QueryError{Op: "iterate rows", Err: err}
	}

	return &datasource.RowSet{Columns: columns, Rows: resultRows}, nil
}

func (r *RowReader) logDriverError(op, sqlQuery string, err error) {
	r.logger.Error("Catalog statement failed",
		zap.String("op", op),
		zap.String("sql", logging.SanitizeQuery(sqlQuery)),
		zap.String("error", logging.SanitizeError(err)))
}

// normalizeValue converts driver values that encoding/json would render
// unhelpfully. pgx decodes uuid columns to [16]byte, which would otherwise
// become an array of numbers.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
