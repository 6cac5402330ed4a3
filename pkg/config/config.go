package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/wubenqing/console/pkg/apperrors"
)

// Config holds all configuration for the catalog console.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For. Only enable
	// behind a reverse proxy that overwrites the header.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" env:"TRUST_PROXY_HEADERS" env-default:"false"`

	// Catalog is the one table the console browses.
	Catalog CatalogConfig `yaml:"catalog"`
}

// CatalogConfig holds the connection and table settings for the browsed catalog.
type CatalogConfig struct {
	Host     string `yaml:"host" env:"CATALOG_PGHOST"`
	Port     int    `yaml:"port" env:"CATALOG_PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"CATALOG_PGUSER"`
	Password string `yaml:"-" env:"CATALOG_PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"CATALOG_PGDATABASE"`
	Schema   string `yaml:"schema" env:"CATALOG_SCHEMA" env-default:"public"`
	Table    string `yaml:"table" env:"CATALOG_TABLE"`
	SSLMode  string `yaml:"ssl_mode" env:"CATALOG_PGSSLMODE" env-default:"disable"`

	// Pool sizing
	MaxConns               int32 `yaml:"max_conns" env:"CATALOG_POOL_MAX_CONNS" env-default:"10"`
	MinConns               int32 `yaml:"min_conns" env:"CATALOG_POOL_MIN_CONNS" env-default:"0"`
	MaxConnIdleMinutes     int   `yaml:"max_conn_idle_minutes" env:"CATALOG_POOL_MAX_CONN_IDLE_MINUTES" env-default:"30"`
	MaxConnLifetimeMinutes int   `yaml:"max_conn_lifetime_minutes" env:"CATALOG_POOL_MAX_CONN_LIFETIME_MINUTES" env-default:"60"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing catalog section is not an error here; the catalog is validated
// lazily on first use so the server can still answer health checks.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and the files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// TLSEnabled reports whether the server should listen with HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertPath != "" && c.TLSKeyPath != ""
}

// Validate checks that the required catalog settings are present.
// Identifier syntax of schema and table is checked by the provider.
func (c *CatalogConfig) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"host", c.Host},
		{"user", c.User},
		{"database", c.Database},
		{"table", c.Table},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.MissingConfig(r.field)
		}
	}
	return nil
}

// SchemaName returns the configured schema, falling back to "public".
func (c *CatalogConfig) SchemaName() string {
	if c.Schema == "" {
		return "public"
	}
	return c.Schema
}

// ConnectionString returns a PostgreSQL URL with escaped credentials.
// When running in Docker, localhost is rewritten to host.docker.internal.
func (c *CatalogConfig) ConnectionString() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(ResolveHostForDocker(c.Host), strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// MaxConnIdleTime returns the idle timeout, or zero when unset.
func (c *CatalogConfig) MaxConnIdleTime() time.Duration {
	return time.Duration(c.MaxConnIdleMinutes) * time.Minute
}

// MaxConnLifetime returns the connection lifetime, or zero when unset.
func (c *CatalogConfig) MaxConnLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetimeMinutes) * time.Minute
}
