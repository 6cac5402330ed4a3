package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/adapters/datasource"
	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/config"
	"github.com/wubenqing/console/pkg/logging"
)

const healthPingTimeout = 2 * time.Second

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse reports whether the catalog database is reachable.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	db     datasource.ConnectionProvider
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil, in which case
// the catalog is reported as not configured.
func NewHealthHandler(cfg *config.Config, db datasource.ConnectionProvider, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{cfg: cfg, db: db, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Responds 503 when the catalog database cannot be pinged.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, database := http.StatusOK, "ok"

	if h.db == nil {
		status, database = http.StatusServiceUnavailable, "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			status, database = http.StatusServiceUnavailable, "unreachable"
			if errors.Is(err, apperrors.ErrInvalidConfig) {
				database = "not_configured"
			}
			h.logger.Warn("Health check failed",
				zap.String("database", database),
				zap.String("error", logging.SanitizeError(err)))
		}
	}

	response := HealthResponse{Status: "ok", Database: database}
	if status != http.StatusOK {
		response.Status = "unavailable"
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "catalog-console",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
