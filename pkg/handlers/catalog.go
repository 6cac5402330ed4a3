package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/apperrors"
	"github.com/wubenqing/console/pkg/audit"
	"github.com/wubenqing/console/pkg/logging"
	"github.com/wubenqing/console/pkg/models"
	"github.com/wubenqing/console/pkg/services"
	"github.com/wubenqing/console/pkg/sql"
)

// maxQueryBodyBytes bounds the size of a query request body.
const maxQueryBodyBytes = 1 << 20

// CatalogHandler serves the catalog browse endpoints for one table.
type CatalogHandler struct {
	service services.CatalogService
	table   models.TableIdentity
	auditor *audit.SecurityAuditor
	logger  *zap.Logger

	trustProxyHeaders bool
}

// NewCatalogHandler creates a new catalog handler. A nil auditor disables
// security event logging. X-Forwarded-For is only read when trustProxyHeaders is set.
func NewCatalogHandler(service services.CatalogService, table models.TableIdentity, auditor *audit.SecurityAuditor, trustProxyHeaders bool, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{
		service: service,
		table:   table,
		auditor: auditor,
		logger:  logger,

		trustProxyHeaders: trustProxyHeaders,
	}
}

// RegisterRoutes registers the catalog handler's routes on the given mux.
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/catalog"

	mux.HandleFunc("POST "+base+"/query", h.Query)
	mux.HandleFunc("GET "+base+"/schema", h.Schema)
	mux.HandleFunc("POST "+base+"/schema/refresh", h.RefreshSchema)
}

// Query handles POST /api/catalog/query
func (h *CatalogHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	// An empty body is a query with no conditions.
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug("Rejected catalog query body", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	clientIP := clientIPFromRequest(r, h.trustProxyHeaders)
	if h.auditor != nil {
		for _, hit := range sql.CheckConditionValues(req.Conditions) {
			h.auditor.LogInjectionPattern(r.Context(), h.table, audit.InjectionPatternDetails{
				Column:      hit.ParamName,
				Fingerprint: hit.Fingerprint,
			}, clientIP)
		}
	}

	result, err := h.service.Query(r.Context(), h.table, &req)
	if err != nil {
		h.writeCatalogError(w, r, err, clientIP)
		return
	}

	if h.auditor != nil {
		h.auditor.LogCatalogQuery(r.Context(), h.table, len(req.Conditions), result.Total, clientIP)
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// Schema handles GET /api/catalog/schema
func (h *CatalogHandler) Schema(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Schema(r.Context(), h.table)
	if err != nil {
		h.writeCatalogError(w, r, err, clientIPFromRequest(r, h.trustProxyHeaders))
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

// RefreshSchema handles POST /api/catalog/schema/refresh
func (h *CatalogHandler) RefreshSchema(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RefreshSchema(r.Context(), h.table)
	if err != nil {
		h.writeCatalogError(w, r, err, clientIPFromRequest(r, h.trustProxyHeaders))
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

// writeCatalogError maps a service error to a status code and error code.
// Only validation messages reach the client; SQL text and driver errors stay in the logs.
func (h *CatalogHandler) writeCatalogError(w http.ResponseWriter, r *http.Request, err error, clientIP string) {
	status, code, message := http.StatusInternalServerError, "query_failed", "Query failed"

	switch {
	case errors.Is(err, apperrors.ErrUnknownColumn):
		status, code = http.StatusBadRequest, "unknown_column"
	case errors.Is(err, apperrors.ErrUnknownOperator):
		status, code = http.StatusBadRequest, "unknown_operator"
	case errors.Is(err, apperrors.ErrEmptyInList):
		status, code = http.StatusBadRequest, "empty_in_list"
	case errors.Is(err, apperrors.ErrMissingValue):
		status, code = http.StatusBadRequest, "missing_value"
	case errors.Is(err, apperrors.ErrInvalidConfig):
		code, message = "catalog_not_configured", "Catalog connection is not configured"
	}

	if status == http.StatusBadRequest {
		message = err.Error()
		if h.auditor != nil {
			h.auditor.LogFilterValidation(r.Context(), h.table, code, message, clientIP)
		}
	} else {
		h.logger.Error("Catalog request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.String("error", logging.SanitizeError(err)))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// clientIPFromRequest returns the connection's remote address, or the first
// X-Forwarded-For hop when the proxy in front is trusted.
func clientIPFromRequest(r *http.Request, trustForwarded bool) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); trustForwarded && forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
