// Package audit records structured audit events for every mutating
// operation the core exposes.
package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/qazna-labs/recordvault/internal/auth"
	"github.com/qazna-labs/recordvault/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and principal
// context: {ts, type:"audit", event, resource_type, resource_id,
// request_id?, user_id?, fields?}.
func LogEvent(ctx context.Context, event, resourceType, resourceID string, fields map[string]any) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}

	logFields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		logFields = append(logFields, zap.String("request_id", rid))
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		logFields = append(logFields, zap.String("user_id", principal.User.ID.String()))
	}
	if len(fields) > 0 {
		logFields = append(logFields, zap.Any("fields", fields))
	}
	obs.Logger().Info("audit", logFields...)
}
