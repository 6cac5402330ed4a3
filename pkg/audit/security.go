// Package audit provides security audit logging for SIEM consumption.
// Events are written through a dedicated "security_audit" logger with both a
// JSON event payload and flat fields for filtering.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/wubenqing/console/pkg/middleware"
	"github.com/wubenqing/console/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionPattern is logged when libinjection flags a filter value.
	// Values are always bound, so this is a signal, not a blocked attack.
	EventSQLInjectionPattern SecurityEventType = "sql_injection_pattern"
	// EventFilterValidation is logged when a catalog filter is rejected.
	EventFilterValidation SecurityEventType = "filter_validation_failure"
	// EventCatalogQuery is logged for completed catalog queries (high volume, debug level).
	EventCatalogQuery SecurityEventType = "catalog_query"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Table     string            `json:"table"`
	RequestID string            `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning
}

// InjectionPatternDetails describes a flagged filter value.
type InjectionPatternDetails struct {
	Column      string `json:"column"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" name.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, table models.TableIdentity, clientIP, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: eventType,
		Table:     table.Schema + "." + table.Table,
		RequestID: middleware.RequestIDFromContext(ctx),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
	// Marshaling these known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogInjectionPattern records a filter value that libinjection flagged.
// The value itself is not logged; the fingerprint identifies the pattern.
func (a *SecurityAuditor) LogInjectionPattern(
	ctx context.Context,
	table models.TableIdentity,
	details InjectionPatternDetails,
	clientIP string,
) {
	event, eventJSON := a.event(ctx, EventSQLInjectionPattern, table, clientIP, "warning", details)

	a.logger.Warn("SQL injection pattern in bound filter value",
		zap.String("event_json", eventJSON),
		zap.String("event_type", string(event.EventType)),
		zap.String("table", event.Table),
		zap.String("column", details.Column),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// LogFilterValidation records a rejected filter. code is the error code
// returned to the client.
func (a *SecurityAuditor) LogFilterValidation(
	ctx context.Context,
	table models.TableIdentity,
	code, errorMessage string,
	clientIP string,
) {
	event, eventJSON := a.event(ctx, EventFilterValidation, table, clientIP, "warning", map[string]string{
		"code":  code,
		"error": errorMessage,
	})

	a.logger.Warn("Catalog filter rejected",
		zap.String("event_json", eventJSON),
		zap.String("event_type", string(event.EventType)),
		zap.String("table", event.Table),
		zap.String("code", code),
		zap.String("error", errorMessage),
		zap.String("client_ip", clientIP),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// LogCatalogQuery records a completed query at DEBUG level.
func (a *SecurityAuditor) LogCatalogQuery(
	ctx context.Context,
	table models.TableIdentity,
	conditions int,
	total int64,
	clientIP string,
) {
	if !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}

	event, eventJSON := a.event(ctx, EventCatalogQuery, table, clientIP, "info", map[string]any{
		"conditions": conditions,
		"total":      total,
	})

	a.logger.Debug("Catalog query executed",
		zap.String("event_json", eventJSON),
		zap.String("event_type", string(event.EventType)),
		zap.String("table", event.Table),
		zap.Int("conditions", conditions),
		zap.Int64("total", total),
		zap.String("client_ip", clientIP),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}
