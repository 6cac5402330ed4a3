package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource/postgres"
	"github.com/wubenqing/console/pkg/audit"
	"github.com/wubenqing/console/pkg/config"
	"github.com/wubenqing/console/pkg/database"
	"github.com/wubenqing/console/pkg/handlers"
	"github.com/wubenqing/console/pkg/logging"
	"github.com/wubenqing/console/pkg/middleware"
	"github.com/wubenqing/console/pkg/retry"
	"github.com/wubenqing/console/pkg/services"
	"github.com/wubenqing/console/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	warmupTimeout   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog database. The pool is created lazily; a bad configuration
	// leaves the server up so /health can report it.
	provider := database.NewProvider(cfg.Catalog, logger)
	defer provider.Close()

	table := provider.Table()
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("catalog_host", cfg.Catalog.Host),
		zap.String("catalog_database", cfg.Catalog.Database),
		zap.String("catalog_table", table.Schema+"."+table.Table),
		zap.Bool("tls", cfg.TLSEnabled()))

	if err := provider.Validate(); err != nil {
		logger.Warn("Catalog is not configured; catalog endpoints will fail until it is", zap.Error(err))
	} else {
		warmUp(ctx, provider, logger)
	}

	// Services
	columnCache := services.NewColumnCache(postgres.NewColumnSource(provider, logger), logger)
	catalogService := services.NewCatalogService(columnCache, postgres.NewRowReader(provider, logger), logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, provider, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, table, audit.NewSecurityAuditor(logger), cfg.TrustProxyHeaders, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID(),
			middleware.RequestLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting catalog console",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if cfg.TLSEnabled() {
			serveErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// warmUp pings the catalog until it answers so the first request does not pay
// for connection setup. Failure is logged and the server starts anyway.
func warmUp(ctx context.Context, provider *database.Provider, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return provider.Ping(ctx)
	})
	if err != nil {
		logger.Warn("Catalog database is not reachable yet",
			zap.String("table", sql.QualifiedTableName(provider.Table())),
			zap.String("error", logging.SanitizeError(err)))
		return
	}
	logger.Info("Catalog database reachable")
}
