package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

type ProductHandler struct {
	products services.ProductService
}

func NewProductHandler(products services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	detail, err := h.products.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, detail)
}

// GET /api/products?search=&limit=&offset=
func (h *ProductHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.products.List(c.Request.Context(), actor, c.Query("search"), limit, offset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"products": list})
}

// GET /api/products/:id?version_id=
func (h *ProductHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	versionID, ok := uuidQuery(c, "version_id")
	if !ok {
		return
	}
	detail, err := h.products.Get(c.Request.Context(), actor, productID, versionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// DELETE /api/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), actor, productID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/products/:id/versions
func (h *ProductHandler) StartVersionRound(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	version, err := h.products.StartVersionRound(c.Request.Context(), actor, productID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, version)
}

// PATCH /api/versions/:id/metadata
func (h *ProductHandler) UpdateVersionMetadata(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.VersionMetadataPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	version, err := h.products.UpdateVersionMetadata(c.Request.Context(), actor, versionID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, version)
}

// PATCH /api/versions/:id/impact
func (h *ProductHandler) UpdateVersionImpact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.VersionImpactPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	version, err := h.products.UpdateVersionImpact(c.Request.Context(), actor, versionID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, version)
}

// POST /api/versions/:id/materials
func (h *ProductHandler) AddMaterial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.MaterialLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	line, err := h.products.AddMaterial(c.Request.Context(), actor, versionID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, line)
}

// DELETE /api/versions/:id/materials/:lineID
func (h *ProductHandler) RemoveMaterial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := uuidParam(c, "lineID")
	if !ok {
		return
	}
	if err := h.products.RemoveMaterial(c.Request.Context(), actor, versionID, lineID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/versions/:id/suppliers
func (h *ProductHandler) AddSupplier(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.SupplierLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	line, err := h.products.AddSupplier(c.Request.Context(), actor, versionID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, line)
}

// DELETE /api/versions/:id/suppliers/:lineID
func (h *ProductHandler) RemoveSupplier(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := uuidParam(c, "lineID")
	if !ok {
		return
	}
	if err := h.products.RemoveSupplier(c.Request.Context(), actor, versionID, lineID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/versions/:id/certifications
func (h *ProductHandler) AddCertification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.CertificationLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	line, err := h.products.AddCertification(c.Request.Context(), actor, versionID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, line)
}

// DELETE /api/versions/:id/certifications/:lineID
func (h *ProductHandler) RemoveCertification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := uuidParam(c, "lineID")
	if !ok {
		return
	}
	if err := h.products.RemoveCertification(c.Request.Context(), actor, versionID, lineID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/products/:id/media
func (h *ProductHandler) AddMedia(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.ProductImageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	media, err := h.products.AddMedia(c.Request.Context(), actor, productID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, media)
}

// POST /api/products/:id/media/:mediaID/main
func (h *ProductHandler) SetMainMedia(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	mediaID, ok := uuidParam(c, "mediaID")
	if !ok {
		return
	}
	if err := h.products.SetMainMedia(c.Request.Context(), actor, productID, mediaID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/products/:id/media/:mediaID
func (h *ProductHandler) DeleteMedia(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	mediaID, ok := uuidParam(c, "mediaID")
	if !ok {
		return
	}
	if err := h.products.DeleteMedia(c.Request.Context(), actor, productID, mediaID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
