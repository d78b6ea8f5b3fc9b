package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GET /api/analytics/dashboard?days=
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	d, err := h.analytics.Dashboard(c.Request.Context(), queryInt(c, "days", services.DefaultDashboardDays))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"dashboard": d})
}

// GET /api/analytics/export?days=
func (h *AnalyticsHandler) Export(c *gin.Context) {
	raw, filename, err := h.analytics.Export(c.Request.Context(), queryInt(c, "days", services.DefaultDashboardDays))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, raw)
}

// GET /api/admin/analytics?days=
func (h *AnalyticsHandler) Platform(c *gin.Context) {
	o, err := h.analytics.Platform(c.Request.Context(), queryInt(c, "days", services.DefaultDashboardDays))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"overview": o})
}
