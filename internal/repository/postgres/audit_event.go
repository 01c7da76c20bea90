package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type auditEventRepository struct {
	repository.BaseRepository
}

// NewAuditEventRepository creates a new PostgreSQL audit event repository
func NewAuditEventRepository(db *sql.DB) repository.AuditEventRepository {
	return &auditEventRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *auditEventRepository) Record(ctx context.Context, req *models.CreateAuditEventRequest) (*models.AuditEvent, error) {
	if req.Description == "" || req.EventType == "" {
		return nil, repository.ErrValidation
	}

	event := &models.AuditEvent{
		ID:              uuid.New(),
		OwnerID:         req.OwnerID,
		EventType:       req.EventType,
		Description:     req.Description,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
		Metadata:        req.Metadata,
		IsSecurityEvent: req.IsSecurityEvent,
	}

	query := `
		INSERT INTO audit_events (
			id, owner_id, event_type, description,
			ip_address, user_agent, metadata, is_security_event
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at`

	// Empty strings become SQL NULL. The metadata column is JSONB and
	// rejects "" as input; ip_address and user_agent are nullable.
	err := r.DB().QueryRowContext(ctx, query,
		event.ID,
		event.OwnerID,
		event.EventType,
		event.Description,
		nullString(event.IPAddress),
		nullString(event.UserAgent),
		nullString(event.Metadata),
		event.IsSecurityEvent,
	).Scan(&event.CreatedAt)
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (r *auditEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEvent, error) {
	query := `
		SELECT id, owner_id, event_type, description,
			   ip_address, user_agent, metadata, is_security_event,
			   created_at
		FROM audit_events
		WHERE id = $1`

	var event models.AuditEvent
	var ipAddress, userAgent, metadata sql.NullString
	err := r.DB().QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OwnerID,
		&event.EventType,
		&event.Description,
		&ipAddress,
		&userAgent,
		&metadata,
		&event.IsSecurityEvent,
		&event.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String
	event.Metadata = metadata.String
	return &event, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *auditEventRepository) buildListQuery(filter repository.AuditEventFilter) (string, []interface{}) {
	var conditions []string
	var params []interface{}
	paramCount := 1

	query := `
		SELECT id, owner_id, event_type, description,
			   ip_address, user_agent, metadata, is_security_event,
			   created_at
		FROM audit_events`

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", paramCount))
		params = append(params, filter.OwnerID)
		paramCount++
	}

	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", paramCount))
		params = append(params, pq.Array(types))
		paramCount++
	}

	if filter.IPAddress != nil {
		conditions = append(conditions, fmt.Sprintf("ip_address = $%d", paramCount))
		params = append(params, filter.IPAddress)
		paramCount++
	}

	if filter.SecurityOnly {
		conditions = append(conditions, "is_security_event = true")
	}

	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", paramCount))
		params = append(params, filter.CreatedBefore)
		paramCount++
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", paramCount))
		params = append(params, filter.CreatedAfter)
		paramCount++
	}

	if filter.SearchTerm != nil {
		conditions = append(conditions, fmt.Sprintf("(description ILIKE $%d OR metadata::text ILIKE $%d)", paramCount, paramCount))
		params = append(params, "%"+*filter.SearchTerm+"%")
		paramCount++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if filter.OrderBy != "" {
		query += fmt.Sprintf(" ORDER BY %s", filter.OrderBy)
		if filter.OrderDesc {
			query += " DESC"
		}
	} else {
		query += " ORDER BY created_at DESC"
	}

	if filter.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", paramCount)
		params = append(params, filter.Limit)
		paramCount++
	}

	if filter.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", paramCount)
		params = append(params, filter.Offset)
	}

	return query, params
}

func (r *auditEventRepository) List(ctx context.Context, filter repository.AuditEventFilter) ([]models.AuditEvent, error) {
	query, params := r.buildListQuery(filter)
	return r.queryEvents(ctx, query, params...)
}

func (r *auditEventRepository) ByOwner(ctx context.Context, ownerID uuid.UUID, limit *int) ([]models.AuditEvent, error) {
	return r.List(ctx, repository.AuditEventFilter{OwnerID: &ownerID, Limit: limit})
}

func (r *auditEventRepository) ByEventType(ctx context.Context, eventType models.AuditEventType, limit *int) ([]models.AuditEvent, error) {
	return r.List(ctx, repository.AuditEventFilter{EventTypes: []models.AuditEventType{eventType}, Limit: limit})
}

func (r *auditEventRepository) ByIPAddress(ctx context.Context, ipAddress string, limit *int) ([]models.AuditEvent, error) {
	return r.List(ctx, repository.AuditEventFilter{IPAddress: &ipAddress, Limit: limit})
}

func (r *auditEventRepository) SecurityEvents(ctx context.Context, limit *int) ([]models.AuditEvent, error) {
	return r.List(ctx, repository.AuditEventFilter{SecurityOnly: true, Limit: limit})
}

func (r *auditEventRepository) RecentSince(ctx context.Context, since time.Time, limit *int) ([]models.AuditEvent, error) {
	return r.List(ctx, repository.AuditEventFilter{CreatedAfter: &since, Limit: limit})
}

func (r *auditEventRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM audit_events WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *auditEventRepository) PurgeByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM audit_events WHERE owner_id = $1", ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *auditEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]models.AuditEvent, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		var ipAddress, userAgent, metadata sql.NullString
		err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.EventType,
			&event.Description,
			&ipAddress,
			&userAgent,
			&metadata,
			&event.IsSecurityEvent,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		event.IPAddress = ipAddress.String
		event.UserAgent = userAgent.String
		event.Metadata = metadata.String
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
