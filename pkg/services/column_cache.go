package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/models"
)

// ColumnCacheTTL is how long fetched column metadata is served without a
// round-trip. Schema changes become visible within this window.
const ColumnCacheTTL = 5 * time.Minute

type columnCacheEntry struct {
	table     models.TableIdentity
	columns   []models.ColumnDescriptor
	fetchedAt time.Time
}

// ColumnCache holds the column metadata of a single table.
//
// Reads are lock-free. Concurrent misses may each fetch; the last completed
// fetch wins. A failed fetch leaves the previous entry in place.
type ColumnCache struct {
	source datasource.ColumnSource
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	entry atomic.Pointer[columnCacheEntry]
}

// ColumnCacheOption configures a ColumnCache.
type ColumnCacheOption func(*ColumnCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ColumnCacheOption {
	return func(c *ColumnCache) { c.now = now }
}

// WithTTL overrides ColumnCacheTTL.
func WithTTL(ttl time.Duration) ColumnCacheOption {
	return func(c *ColumnCache) { c.ttl = ttl }
}

// NewColumnCache creates an empty cache in front of source.
func NewColumnCache(source datasource.ColumnSource, logger *zap.Logger, opts ...ColumnCacheOption) *ColumnCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ColumnCache{
		source: source,
		logger: logger,
		ttl:    ColumnCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetColumns returns the columns of table, fetching them when the entry is
// missing, expired or for a different table. The returned slice is a copy.
func (c *ColumnCache) GetColumns(ctx context.Context, table models.TableIdentity) ([]models.ColumnDescriptor, error) {
	now := c.now()
	if e := c.entry.Load(); e != nil && e.table == table && now.Sub(e.fetchedAt) < c.ttl {
		return copyColumns(e.columns), nil
	}

	columns, err := c.source.FetchColumns(ctx, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}

	c.entry.Store(&columnCacheEntry{
		table:     table,
		columns:   copyColumns(columns),
		fetchedAt: c.now(),
	})
	c.logger.Debug("Refreshed catalog column cache",
		zap.String("schema", table.Schema),
		zap.String("table", table.Table),
		zap.Int("columns", len(columns)))

	return copyColumns(columns), nil
}

// Invalidate drops the cached entry so the next GetColumns fetches.
func (c *ColumnCache) Invalidate() {
	c.entry.Store(nil)
}

func copyColumns(columns []models.ColumnDescriptor) []models.ColumnDescriptor {
	out := make([]models.ColumnDescriptor, len(columns))
	copy(out, columns)
	return out
}
