package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/services"
)

type DashboardHandler struct {
	dashboards services.DashboardService
}

func NewDashboardHandler(dashboards services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// GET /api/dashboard/brand
func (h *DashboardHandler) BrandOverview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	overview, err := h.dashboards.BrandOverview(c.Request.Context(), actor)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, overview)
}

// GET /api/dashboard/supplier
func (h *DashboardHandler) SupplierOverview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	overview, err := h.dashboards.SupplierOverview(c.Request.Context(), actor)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, overview)
}
