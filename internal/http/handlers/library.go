package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

// LibraryHandler exposes the four reference libraries. Every route answers
// against the acting tenant's visibility set: System Global rows plus its
// own custom entries.
type LibraryHandler struct {
	library services.LibraryService
}

func NewLibraryHandler(library services.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// GET /api/library/materials?search=
func (h *LibraryHandler) ListMaterials(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.library.ListMaterials(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"materials": list})
}

// POST /api/library/materials
func (h *LibraryHandler) CreateMaterial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.CreateMaterial(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, row)
}

// PATCH /api/library/materials/:id
func (h *LibraryHandler) UpdateMaterial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.MaterialPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.UpdateMaterial(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/library/materials/:id
func (h *LibraryHandler) DeleteMaterial(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.library.DeleteMaterial(c.Request.Context(), actor, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/library/certifications?search=
func (h *LibraryHandler) ListCertifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.library.ListCertifications(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"certifications": list})
}

// POST /api/library/certifications
func (h *LibraryHandler) CreateCertification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.CertificationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.CreateCertification(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, row)
}

// PATCH /api/library/certifications/:id
func (h *LibraryHandler) UpdateCertification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.CertificationPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.UpdateCertification(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/library/certifications/:id
func (h *LibraryHandler) DeleteCertification(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.library.DeleteCertification(c.Request.Context(), actor, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/library/certificate-definitions?search=
func (h *LibraryHandler) ListCertificateDefinitions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.library.ListCertificateDefinitions(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"certificate_definitions": list})
}

// POST /api/library/certificate-definitions
func (h *LibraryHandler) CreateCertificateDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.CertificateDefinitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.CreateCertificateDefinition(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, row)
}

// PATCH /api/library/certificate-definitions/:id
func (h *LibraryHandler) UpdateCertificateDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.CertificateDefinitionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.UpdateCertificateDefinition(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/library/certificate-definitions/:id
func (h *LibraryHandler) DeleteCertificateDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.library.DeleteCertificateDefinition(c.Request.Context(), actor, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/library/material-definitions?search=
func (h *LibraryHandler) ListMaterialDefinitions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.library.ListMaterialDefinitions(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"material_definitions": list})
}

// POST /api/library/material-definitions
func (h *LibraryHandler) CreateMaterialDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req services.MaterialDefinitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.CreateMaterialDefinition(c.Request.Context(), actor, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, row)
}

// PATCH /api/library/material-definitions/:id
func (h *LibraryHandler) UpdateMaterialDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.MaterialDefinitionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	row, err := h.library.UpdateMaterialDefinition(c.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/library/material-definitions/:id
func (h *LibraryHandler) DeleteMaterialDefinition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.library.DeleteMaterialDefinition(c.Request.Context(), actor, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
