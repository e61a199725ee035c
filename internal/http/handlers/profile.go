package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

// ProfileHandler serves the brand's supplier address book.
type ProfileHandler struct {
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /api/suppliers
func (h *ProfileHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.profiles.List(c.Request.Context(), actor)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"suppliers": list})
}

// GET /api/suppliers/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	profileID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), actor, profileID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

// PATCH /api/suppliers/:id
func (h *ProfileHandler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	profileID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ProfileUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), actor, profileID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, profile)
}
