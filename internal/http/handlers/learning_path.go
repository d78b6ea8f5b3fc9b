package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type LearningPathHandler struct {
	paths services.LearningPathService
}

func NewLearningPathHandler(paths services.LearningPathService) *LearningPathHandler {
	return &LearningPathHandler{paths: paths}
}

// POST /api/learning/paths/generate {"steps": n}
func (h *LearningPathHandler) Generate(c *gin.Context) {
	var req struct {
		Steps int `json:"steps" binding:"gte=0"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondBindError(c, err)
			return
		}
	}
	path, err := h.paths.Generate(c.Request.Context(), req.Steps)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"path": path})
}

// GET /api/learning/paths/active
func (h *LearningPathHandler) GetActive(c *gin.Context) {
	path, err := h.paths.GetActive(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"path": path})
}

// GET /api/learning/paths
func (h *LearningPathHandler) List(c *gin.Context) {
	paths, err := h.paths.List(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"paths": paths})
}

// POST /api/learning/paths/steps/:id/complete
func (h *LearningPathHandler) CompleteStep(c *gin.Context) {
	id, ok := pathID(c, "invalid_step_id")
	if !ok {
		return
	}
	path, err := h.paths.CompleteStep(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"path": path})
}

// POST /api/learning/paths/steps/:id/skip
func (h *LearningPathHandler) SkipStep(c *gin.Context) {
	id, ok := pathID(c, "invalid_step_id")
	if !ok {
		return
	}
	path, err := h.paths.SkipStep(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"path": path})
}
