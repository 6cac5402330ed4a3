package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/config"
	"github.com/wubenqing/console/pkg/logging"
	"github.com/wubenqing/console/pkg/models"
	"github.com/wubenqing/console/pkg/sql"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	*pgxpool.Pool
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool creates a connection pool without contacting the server.
// Only an unparsable URL fails here; connectivity problems surface on first use.
func NewPool(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MinConns = cfg.MinConnections

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = time.Minute * 30
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// NewConnection creates a connection pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	db, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

var errProviderClosed = errors.New("catalog pool is closed")

// Provider hands out the process-wide catalog pool. The pool is built on
// first use; a configuration failure is remembered and returned on every
// later call without being retried.
type Provider struct {
	cfg    config.CatalogConfig
	logger *zap.Logger

	once sync.Once
	db   *DB
	err  error

	mu     sync.Mutex
	closed bool
}

var _ datasource.ConnectionProvider = (*Provider)(nil)

// NewProvider creates a Provider. It performs no I/O.
func NewProvider(cfg config.CatalogConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.Named("catalog_db"),
	}
}

// Table returns the configured catalog table identity. It is not validated.
func (p *Provider) Table() models.TableIdentity {
	return models.TableIdentity{
		Schema: p.cfg.SchemaName(),
		Table:  p.cfg.Table,
	}
}

// Validate checks required settings and the schema and table identifiers.
func (p *Provider) Validate() error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	return sql.ValidateTable(p.Table())
}

// Pool returns the shared pool, creating it on the first call.
func (p *Provider) Pool(ctx context.Context) (*DB, error) {
	p.once.Do(func() {
		p.db, p.err = p.open(ctx)
	})
	if p.err != nil {
		return nil, p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errProviderClosed
	}
	return p.db, nil
}

func (p *Provider) open(ctx context.Context) (*DB, error) {
	if err := p.Validate(); err != nil {
		p.logger.Error("Catalog configuration is invalid", zap.Error(err))
		return nil, err
	}

	connStr := p.cfg.ConnectionString()
	// The pool outlives the request that happened to create it.
	db, err := NewPool(context.WithoutCancel(ctx), &Config{
		URL:             connStr,
		MaxConnections:  p.cfg.MaxConns,
		MinConnections:  p.cfg.MinConns,
		MaxConnLifetime: p.cfg.MaxConnLifetime(),
		MaxConnIdleTime: p.cfg.MaxConnIdleTime(),
	})
	if err != nil {
		p.logger.Error("Failed to create catalog pool",
			zap.String("connection", logging.SanitizeConnectionString(connStr)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, logging.SanitizeError(err))
	}

	p.logger.Info("Catalog pool created",
		zap.String("host", p.cfg.Host),
		zap.String("database", p.cfg.Database),
		zap.String("table", sql.QualifiedTableName(p.Table())))
	return db, nil
}

// Querier returns the pool as the query interface used by the catalog core.
func (p *Provider) Querier(ctx context.Context) (datasource.Querier, error) {
	db, err := p.Pool(ctx)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Ping verifies the catalog database is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	db, err := p.Pool(ctx)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping catalog database: %w", err)
	}
	return nil
}

// Close closes the pool if it was created. Later Pool calls fail.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	// Waits for an in-flight open, or marks the provider as never opened.
	p.once.Do(func() { p.err = errProviderClosed })
	if p.db != nil {
		p.db.Close()
	}
}
