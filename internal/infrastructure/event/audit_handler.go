package event

import (
	"context"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every ledger event to a dedicated "audit" logger.
// Auditable events contribute their actor and payload; other events are
// logged with the envelope fields only.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler writing under base.Named("audit")
func NewAuditLogHandler(base *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: base.Named("audit")}
}

// EventTypes returns nil so the handler is registered as a wildcard.
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs one event at info level. It never fails, so a broken audit
// sink cannot abort the publisher.
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := make([]zap.Field, 0, 12)
	for _, f := range logger.ContextFields(ctx) {
		if f.Key != "tenant_id" {
			fields = append(fields, f)
		}
	}
	fields = append(fields,
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)

	if auditable, ok := event.(shared.AuditableEvent); ok {
		actor := auditable.EventActor()
		if actor.UserID != nil {
			fields = append(fields, zap.String("actor_id", actor.UserID.String()))
		}
		if actor.UserEmail != "" {
			fields = append(fields, zap.String("actor_email", actor.UserEmail))
		}
		fields = append(fields, zap.Any("data", auditable.EventData()))
	}

	h.logger.Info("Ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
