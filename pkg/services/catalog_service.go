package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/models"
	"github.com/wubenqing/console/pkg/sql"
)

// CatalogService browses the configured catalog table.
type CatalogService interface {
	// Query filters, sorts and pages rows of table.
	Query(ctx context.Context, table models.TableIdentity, req *models.QueryRequest) (*models.QueryResult, error)

	// Schema returns the column metadata of table.
	Schema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error)

	// RefreshSchema drops cached metadata and fetches it again.
	RefreshSchema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error)
}

type catalogService struct {
	columns *ColumnCache
	reader  datasource.RowReader
	logger  *zap.Logger
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService creates a CatalogService.
func NewCatalogService(columns *ColumnCache, reader datasource.RowReader, logger *zap.Logger) CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{
		columns: columns,
		reader:  reader,
		logger:  logger.Named("catalog"),
	}
}

// Query validates and compiles req against the table's columns, then runs
// COUNT and SELECT. Every validation error is returned before the data
// statements run.
func (s *catalogService) Query(ctx context.Context, table models.TableIdentity, req *models.QueryRequest) (*models.QueryResult, error) {
	if req == nil {
		req = &models.QueryRequest{}
	}

	compiled, err := s.compile(ctx, table, req)
	if err != nil {
		return nil, err
	}

	total, err := s.reader.CountRows(ctx, sql.BuildCountSQL(table, compiled.WhereSQL), compiled.Params)
	if err != nil {
		return nil, fmt.Errorf("count catalog rows: %w", err)
	}
	if total < 0 {
		total = 0
	}

	selectSQL, params := sql.BuildSelectSQL(table, compiled)
	rowSet, err := s.reader.SelectRows(ctx, selectSQL, params)
	if err != nil {
		return nil, fmt.Errorf("select catalog rows: %w", err)
	}

	s.logger.Debug("Catalog query completed",
		zap.Int("conditions", len(req.Conditions)),
		zap.Int64("total", total),
		zap.Int("rows", len(rowSet.Rows)),
		zap.Int("limit", compiled.Limit),
		zap.Int("offset", compiled.Offset))

	return &models.QueryResult{
		Columns: nonNilStrings(rowSet.Columns),
		Rows:    nonNilRows(rowSet.Rows),
		Total:   total,
	}, nil
}

// compile resolves the column set and builds every clause of the statement.
func (s *catalogService) compile(ctx context.Context, table models.TableIdentity, req *models.QueryRequest) (*models.CompiledQuery, error) {
	if err := sql.ValidateTable(table); err != nil {
		return nil, err
	}

	descriptors, err := s.columns.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	columns := models.NewColumnSet(descriptors)

	where, err := sql.CompileConditions(req.Conditions, columns)
	if err != nil {
		return nil, err
	}

	return &models.CompiledQuery{
		WhereSQL:   where.SQL,
		OrderBySQL: sql.BuildOrderBy(req.Sort, columns),
		Params:     where.Params,
		Limit:      sql.ClampLimit(req.Limit),
		Offset:     sql.ClampOffset(req.Offset),
	}, nil
}

func (s *catalogService) Schema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error) {
	if err := sql.ValidateTable(table); err != nil {
		return nil, err
	}

	columns, err := s.columns.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	return &models.SchemaResult{Table: table, Columns: columns}, nil
}

func (s *catalogService) RefreshSchema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error) {
	s.columns.Invalidate()
	s.logger.Info("Catalog column cache invalidated",
		zap.String("schema", table.Schema),
		zap.String("table", table.Table))
	return s.Schema(ctx, table)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}
