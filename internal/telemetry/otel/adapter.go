package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"propertydesk/backend/internal/audit"
)

// NewAuditEmitter returns an audit.AuditLogger that emits each event as an
// OTel log record via the given LoggerProvider, so session events reach the
// collector alongside traces. If provider is nil, returns a no-op emitter.
// Pair it with the persisting logger through audit.MultiLogger.
func NewAuditEmitter(provider *sdklog.LoggerProvider) audit.AuditLogger {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("propertydesk.audit")}
}

type noopEmitter struct{}

func (noopEmitter) LogEvent(context.Context, string, string, string, string) {}

type otelEmitter struct {
	logger otellog.Logger
}

// LogEvent converts the audit event to an OTel log record and emits it.
// Best-effort; the batch processor handles delivery off the request path.
func (e *otelEmitter) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	rec := otellog.Record{}
	rec.SetTimestamp(time.Now().UTC())
	rec.SetBody(otellog.StringValue(action))
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if action != "" {
		rec.AddAttributes(otellog.String("action", action))
	}
	if resource != "" {
		rec.AddAttributes(otellog.String("resource", resource))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	e.logger.Emit(ctx, rec)
}
