package handlers

import (
	"context"
	"sync"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/models"
	"github.com/wubenqing/console/pkg/services"
)

// mockCatalogService records calls and returns canned results.
type mockCatalogService struct {
	mu sync.Mutex

	queryResult  *models.QueryResult
	schemaResult *models.SchemaResult
	err          error

	queryCalls   int
	schemaCalls  int
	refreshCalls int
	lastTable    models.TableIdentity
	lastRequest  *models.QueryRequest
}

var _ services.CatalogService = (*mockCatalogService)(nil)

func (m *mockCatalogService) Query(ctx context.Context, table models.TableIdentity, req *models.QueryRequest) (*models.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.lastTable = table
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	if m.queryResult != nil {
		return m.queryResult, nil
	}
	return &models.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
}

func (m *mockCatalogService) Schema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaCalls++
	m.lastTable = table
	return m.schema(table)
}

func (m *mockCatalogService) RefreshSchema(ctx context.Context, table models.TableIdentity) (*models.SchemaResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	m.lastTable = table
	return m.schema(table)
}

func (m *mockCatalogService) schema(table models.TableIdentity) (*models.SchemaResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.schemaResult != nil {
		return m.schemaResult, nil
	}
	return &models.SchemaResult{Table: table, Columns: []models.ColumnDescriptor{}}, nil
}

// mockConnectionProvider is a ConnectionProvider whose Ping result is fixed.
type mockConnectionProvider struct {
	pingErr   error
	pingCalls int
}

var _ datasource.ConnectionProvider = (*mockConnectionProvider)(nil)

func (m *mockConnectionProvider) Querier(ctx context.Context) (datasource.Querier, error) {
	return nil, m.pingErr
}

func (m *mockConnectionProvider) Ping(ctx context.Context) error {
	m.pingCalls++
	return m.pingErr
}
