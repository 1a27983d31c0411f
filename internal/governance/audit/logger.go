// Package audit records console actions as structured audit log lines.
//
// Records go to a dedicated "audit" logger so they can be routed separately
// from operational logs. The audit log is append-only.
package audit

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"odoodeploy.io/console/internal/domain"
	"odoodeploy.io/console/internal/pkg/logger"
)

// Logger writes audit records.
type Logger struct {
	log *zap.Logger
}

// NewLogger creates an audit Logger. A nil zap logger uses the global
// logger named "audit".
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = logger.Named("audit")
	}
	return &Logger{log: l}
}

// LogAction records an auditable action.
func (l *Logger) LogAction(_ context.Context, action, resourceType, resourceID string, details map[string]any) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	l.log.Info("audit", fields...)
}

// HandleEvent is a domain.EventHandler that audits every event it receives.
func (l *Logger) HandleEvent(ctx context.Context, event *domain.DomainEvent) error {
	details := map[string]any{"event_id": event.EventID}
	if len(event.Payload) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			for k, v := range payload {
				details[k] = v
			}
		}
	}
	l.LogAction(ctx, actionName(event.EventType), event.AggregateType, event.AggregateID, details)
	return nil
}

// Subscribe registers the logger for every domain event type.
func (l *Logger) Subscribe(d *domain.EventDispatcher) {
	d.RegisterAll(l.HandleEvent, domain.AllEventTypes()...)
}

// actionName turns DEPLOYMENT_SUCCEEDED into deployment.succeeded.
func actionName(et domain.EventType) string {
	name := strings.ToLower(string(et))
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i] + "." + name[i+1:]
	}
	return name
}
