package handlers

import (
	"net/http"
	"strconv"
	"time"
	"credcore/internal/models"
	"credcore/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler exposes read access to the audit log for administrators
type AuditHandler struct {
	auditRepo repository.AuditEventRepository
}

// NewAuditHandler creates a new audit log handler
func NewAuditHandler(auditRepo repository.AuditEventRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

func parseLimit(c *gin.Context) *int {
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return &limit
		}
	}
	return nil
}

// List godoc
// @Summary List audit events
// @Description List audit events with optional filters. Admin only.
// @Tags audit
// @Produce json
// @Param owner_id query string false "Filter by owner ID"
// @Param event_type query string false "Filter by event type"
// @Param ip_address query string false "Filter by IP address"
// @Param security_only query bool false "Only security events"
// @Param since query string false "Events created after (RFC3339)"
// @Param until query string false "Events created before (RFC3339)"
// @Param search query string false "Search in description and metadata"
// @Param limit query int false "Maximum number of events"
// @Param offset query int false "Offset for pagination"
// @Success 200 {array} models.AuditEvent
// @Failure 400 {object} models.ErrorResponse "Invalid filter parameter"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := repository.AuditEventFilter{
		OrderBy:   "created_at",
		OrderDesc: true,
		Limit:     parseLimit(c),
	}

	if raw := c.Query("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid owner_id"})
			return
		}
		filter.OwnerID = &ownerID
	}
	if raw := c.Query("event_type"); raw != "" {
		filter.EventTypes = []models.AuditEventType{models.AuditEventType(raw)}
	}
	if raw := c.Query("ip_address"); raw != "" {
		filter.IPAddress = &raw
	}
	if c.Query("security_only") == "true" {
		filter.SecurityOnly = true
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid since timestamp"})
			return
		}
		filter.CreatedAfter = &since
	}
	if raw := c.Query("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid until timestamp"})
			return
		}
		filter.CreatedBefore = &until
	}
	if raw := c.Query("search"); raw != "" {
		filter.SearchTerm = &raw
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = &offset
		}
	}

	events, err := h.auditRepo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// Get godoc
// @Summary Get audit event
// @Description Get a single audit event by ID. Admin only.
// @Tags audit
// @Produce json
// @Param id path string true "Audit event ID"
// @Success 200 {object} models.AuditEvent
// @Failure 400 {object} models.ErrorResponse "Invalid event ID"
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "Event not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /audit/{id} [get]
func (h *AuditHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid event ID"})
		return
	}

	event, err := h.auditRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// Security godoc
// @Summary List security events
// @Description List recent security-relevant audit events. Admin only.
// @Tags audit
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Success 200 {array} models.AuditEvent
// @Failure 401 {object} models.ErrorResponse "Not authenticated"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /audit/security [get]
func (h *AuditHandler) Security(c *gin.Context) {
	events, err := h.auditRepo.SecurityEvents(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}
