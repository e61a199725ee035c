package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/services"
)

type AuditHandler struct {
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit?entity_type=&entity_id=&action=&limit=&offset=
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entityID, ok := uuidQuery(c, "entity_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	q := services.AuditQuery{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   entityID,
		Action:     types.AuditAction(strings.ToUpper(strings.TrimSpace(c.Query("action")))),
		Limit:      limit,
		Offset:     offset,
	}
	rows, err := h.audit.List(c.Request.Context(), actor, q)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entries": rows})
}
