package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type ExamHandler struct {
	exams services.ExamGeneratorService
}

func NewExamHandler(exams services.ExamGeneratorService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// POST /api/exams/generate
func (h *ExamHandler) Generate(c *gin.Context) {
	var req struct {
		Skill         string  `json:"skill" binding:"required,oneof=listening reading writing speaking"`
		Module        string  `json:"module" binding:"omitempty,oneof=academic general"`
		Topic         string  `json:"topic" binding:"required,max=200"`
		Difficulty    float64 `json:"difficulty" binding:"omitempty,band"`
		QuestionCount int     `json:"question_count" binding:"gte=0,lte=40"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	job, err := h.exams.Enqueue(c.Request.Context(), services.ExamRequest{
		Skill:         req.Skill,
		Module:        req.Module,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}
