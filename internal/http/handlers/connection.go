package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

// ConnectionHandler serves both sides of the invitation handshake: the
// brand's invite/reinvite/disconnect surface and the supplier's
// incoming/respond surface, plus the public token landing page.
type ConnectionHandler struct {
	connections services.ConnectionService
}

func NewConnectionHandler(connections services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// POST /api/suppliers/invite
func (h *ConnectionHandler) Invite(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.InviteSupplierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	profile, err := h.connections.Invite(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, profile)
}

// POST /api/suppliers/:id/reinvite
func (h *ConnectionHandler) Reinvite(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	profileID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ReinviteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	profile, err := h.connections.Reinvite(c.Request.Context(), actor, profileID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

// DELETE /api/suppliers/:id
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	profileID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	outcome, err := h.connections.Disconnect(c.Request.Context(), actor, profileID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"outcome": outcome})
}

// GET /api/connections/incoming?status=PENDING,ACTIVE
func (h *ConnectionHandler) ListIncoming(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var statuses []types.ConnectionStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, types.ConnectionStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	list, err := h.connections.ListIncoming(c.Request.Context(), actor, statuses)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"connections": list})
}

// POST /api/connections/:id/respond
func (h *ConnectionHandler) Respond(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	connectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	conn, err := h.connections.Respond(c.Request.Context(), actor, connectionID, req.Accept)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, conn)
}

// POST /api/connections/:id/disconnect
func (h *ConnectionHandler) DisconnectAsSupplier(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	connectionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	conn, err := h.connections.DisconnectAsSupplier(c.Request.Context(), actor, connectionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, conn)
}

// GET /api/invitations/validate?token=...  (public: the accept landing page
// loads before the invitee has an account)
func (h *ConnectionHandler) ValidateToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.RespondAPIError(c, apierr.Validation("token is required"))
		return
	}
	details, err := h.connections.ValidateToken(c.Request.Context(), token)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, details)
}

// GET /api/directory/suppliers?q=...&limit=20
func (h *ConnectionHandler) SearchDirectory(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.connections.SearchDirectory(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"suppliers": entries})
}
