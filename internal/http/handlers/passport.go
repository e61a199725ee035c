package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

type PassportHandler struct {
	passports services.PassportService
}

func NewPassportHandler(passports services.PassportService) *PassportHandler {
	return &PassportHandler{passports: passports}
}

// POST /api/products/:id/passport
func (h *PassportHandler) Publish(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		VersionID string `json:"version_id"`
	}
	// Body is optional; without it the current version is published.
	_ = c.ShouldBindJSON(&req)
	versionID, err := parseOptionalUUID(req.VersionID)
	if err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid version_id"))
		return
	}
	pp, err := h.passports.Publish(c.Request.Context(), actor, productID, versionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, pp)
}

// POST /api/products/:id/passport/archive
func (h *PassportHandler) Archive(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pp, err := h.passports.Archive(c.Request.Context(), actor, productID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, pp)
}

// GET /api/products/:id/passport
func (h *PassportHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pp, err := h.passports.Get(c.Request.Context(), actor, productID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, pp)
}

// GET /api/products/:id/chain
func (h *PassportHandler) Chain(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	chain, err := h.passports.Chain(c.Request.Context(), actor, productID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, chain)
}

// GET /public/passports/:uid  (unauthenticated QR landing page)
func (h *PassportHandler) PublicView(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		response.RespondAPIError(c, apierr.Validation("missing passport uid"))
		return
	}
	view, err := h.passports.PublicView(c.Request.Context(), uid)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}
