package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type RecommendationHandler struct {
	recs services.RecommendationService
}

func NewRecommendationHandler(recs services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recs: recs}
}

// GET /api/recommendations
func (h *RecommendationHandler) List(c *gin.Context) {
	rows, err := h.recs.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recommendations": rows})
}

// POST /api/recommendations/refresh
func (h *RecommendationHandler) Refresh(c *gin.Context) {
	rows, err := h.recs.Refresh(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recommendations": rows})
}

// POST /api/recommendations/:id/dismiss
func (h *RecommendationHandler) Dismiss(c *gin.Context) {
	id, ok := pathID(c, "invalid_recommendation_id")
	if !ok {
		return
	}
	if err := h.recs.Dismiss(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/recommendations/:id/done
func (h *RecommendationHandler) MarkDone(c *gin.Context) {
	id, ok := pathID(c, "invalid_recommendation_id")
	if !ok {
		return
	}
	if err := h.recs.MarkDone(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
