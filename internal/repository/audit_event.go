package repository

import (
	"context"
	"time"
	"credcore/internal/models"

	"github.com/google/uuid"
)

// AuditEventRepository defines the interface for the append-only audit log.
// Events are immutable; the only deletions are retention and owner erasure.
type AuditEventRepository interface {
	Repository
	// Record persists one event. Description is required; OwnerID may be nil
	// for system or unauthenticated events.
	Record(ctx context.Context, event *models.CreateAuditEventRequest) (*models.AuditEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error)
	List(ctx context.Context, filter AuditEventFilter) ([]models.AuditEvent, error)
	ByOwner(ctx context.Context, ownerID uuid.UUID, limit *int) ([]models.AuditEvent, error)
	ByEventType(ctx context.Context, eventType models.AuditEventType, limit *int) ([]models.AuditEvent, error)
	ByIPAddress(ctx context.Context, ipAddress string, limit *int) ([]models.AuditEvent, error)
	SecurityEvents(ctx context.Context, limit *int) ([]models.AuditEvent, error)
	RecentSince(ctx context.Context, since time.Time, limit *int) ([]models.AuditEvent, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// AuditEventFilter defines the filter options for listing audit events
type AuditEventFilter struct {
	OwnerID       *uuid.UUID              // Filter by owner
	EventTypes    []models.AuditEventType // Filter by event types
	IPAddress     *string                 // Filter by IP address
	SecurityOnly  bool                    // Only security events
	CreatedBefore *time.Time              // Filter by creation time
	CreatedAfter  *time.Time              // Filter by creation time
	SearchTerm    *string                 // Search in description and metadata
	OrderBy       string                  // Field to order by
	OrderDesc     bool                    // Order descending
	Limit         *int                    // Limit results
	Offset        *int                    // Offset results
}
