package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType identifies the kind of security or account event recorded
type AuditEventType string

const (
	AuditLoginSuccess           AuditEventType = "LOGIN_SUCCESS"
	AuditLoginFailed            AuditEventType = "LOGIN_FAILED"
	AuditLoginLocked            AuditEventType = "LOGIN_LOCKED"
	AuditPasswordChanged        AuditEventType = "PASSWORD_CHANGED"
	AuditPasswordResetRequested AuditEventType = "PASSWORD_RESET_REQUESTED"
	AuditPasswordResetCompleted AuditEventType = "PASSWORD_RESET_COMPLETED"
	AuditAccountCreated         AuditEventType = "ACCOUNT_CREATED"
	AuditAccountDeleted         AuditEventType = "ACCOUNT_DELETED"
	AuditTwoFactorEnabled       AuditEventType = "TWO_FACTOR_ENABLED"
	AuditTwoFactorDisabled      AuditEventType = "TWO_FACTOR_DISABLED"
)

// AuditEvent represents an immutable record of a security-relevant action
type AuditEvent struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	OwnerID         *uuid.UUID     `json:"owner_id" db:"owner_id"` // nil for unauthenticated/system events
	EventType       AuditEventType `json:"event_type" db:"event_type"`
	Description     string         `json:"description" db:"description"`
	IPAddress       string         `json:"ip_address" db:"ip_address"`
	UserAgent       string         `json:"user_agent" db:"user_agent"`
	Metadata        string         `json:"metadata" db:"metadata"` // JSON payload
	IsSecurityEvent bool           `json:"is_security_event" db:"is_security_event"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// CreateAuditEventRequest represents the request to record a new audit event
type CreateAuditEventRequest struct {
	OwnerID         *uuid.UUID     `json:"owner_id"`
	EventType       AuditEventType `json:"event_type" binding:"required"`
	Description     string         `json:"description" binding:"required"`
	IPAddress       string         `json:"ip_address"`
	UserAgent       string         `json:"user_agent"`
	Metadata        string         `json:"metadata"`
	IsSecurityEvent bool           `json:"is_security_event"`
}
