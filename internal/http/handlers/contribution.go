package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/tracebind/passport-backend/internal/domain"
	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/pkg/ctxutil"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

// ContributionHandler drives the request/version workflow: assignment and
// review on the brand side, draft editing and submission on the supplier
// side.
type ContributionHandler struct {
	contributions services.ContributionService
}

func NewContributionHandler(contributions services.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributions: contributions}
}

// POST /api/products/:id/requests
func (h *ContributionHandler) Assign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.AssignSupplierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	request, err := h.contributions.Assign(c.Request.Context(), actor, productID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, request)
}

// GET /api/products/:id/requests
func (h *ContributionHandler) ListForProduct(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.contributions.ListForBrand(c.Request.Context(), actor, productID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"requests": list})
}

// GET /api/requests?status=SENT,IN_PROGRESS
func (h *ContributionHandler) ListForSupplier(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var statuses []types.RequestStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, types.RequestStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	list, err := h.contributions.ListForSupplier(c.Request.Context(), actor, statuses)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"requests": list})
}

// GET /api/requests/:id
func (h *ContributionHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.contributions.Get(c.Request.Context(), actor, requestID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/requests/:id/accept
func (h *ContributionHandler) Accept(c *gin.Context) {
	h.transition(c, h.contributions.Accept)
}

// POST /api/requests/:id/decline
func (h *ContributionHandler) Decline(c *gin.Context) {
	h.transition(c, h.contributions.Decline)
}

// POST /api/requests/:id/submit
func (h *ContributionHandler) Submit(c *gin.Context) {
	h.transition(c, h.contributions.Submit)
}

// POST /api/requests/:id/cancel
func (h *ContributionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.contributions.Cancel)
}

// PUT /api/requests/:id/draft
func (h *ContributionHandler) SaveDraft(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var payload services.DraftPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	request, err := h.contributions.SaveDraft(c.Request.Context(), actor, requestID, payload)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, request)
}

// POST /api/requests/:id/review
func (h *ContributionHandler) Review(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Approve bool   `json:"approve"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	request, err := h.contributions.Review(c.Request.Context(), actor, requestID, req.Approve, req.Comment)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, request)
}

type transitionFunc func(ctx context.Context, actor ctxutil.Actor, requestID uuid.UUID, note string) (*types.DataContributionRequest, error)

func (h *ContributionHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	// Note body is optional on transitions.
	_ = c.ShouldBindJSON(&req)

	request, err := fn(c.Request.Context(), actor, requestID, req.Note)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, request)
}
