package credential

import (
	"context"
	"encoding/json"
	"credcore/internal/metrics"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// auditor records audit events without ever failing the caller. A lost audit
// write is surfaced on the log and metrics channels instead; authentication
// must not acquire the audit store as a point of failure.
type auditor struct {
	repo   repository.AuditEventRepository
	logger *zap.Logger
}

func (a *auditor) record(ctx context.Context, ownerID *uuid.UUID, eventType models.AuditEventType, description string, rc RequestContext, metadata map[string]interface{}) {
	var meta string
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}

	_, err := a.repo.Record(ctx, &models.CreateAuditEventRequest{
		OwnerID:         ownerID,
		EventType:       eventType,
		Description:     description,
		IPAddress:       rc.IPAddress,
		UserAgent:       rc.UserAgent,
		Metadata:        meta,
		IsSecurityEvent: true,
	})
	if err != nil {
		metrics.AuditWriteFailures.Inc()
		a.logger.Error("audit event write failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
