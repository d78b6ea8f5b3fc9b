package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

// ObjectiveHandler serves reading and listening tests; the skill is fixed per instance.
type ObjectiveHandler struct {
	skill     string
	objective services.ObjectiveService
}

func NewObjectiveHandler(skill string, objective services.ObjectiveService) *ObjectiveHandler {
	return &ObjectiveHandler{skill: skill, objective: objective}
}

// POST /api/{reading,listening}/tests
func (h *ObjectiveHandler) Submit(c *gin.Context) {
	var req struct {
		ContentItemID uuid.UUID         `json:"content_item_id" binding:"required"`
		Answers       map[string]string `json:"answers" binding:"required"`
		TimeSpentSec  int               `json:"time_spent_sec" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	attempt, err := h.objective.Submit(c.Request.Context(), h.skill, services.ObjectiveSubmitInput{
		ContentItemID: req.ContentItemID,
		Answers:       req.Answers,
		TimeSpentSec:  req.TimeSpentSec,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"test": attempt})
}

// GET /api/{reading,listening}/tests/:id
func (h *ObjectiveHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "invalid_test_id")
	if !ok {
		return
	}
	attempt, err := h.objective.Get(c.Request.Context(), h.skill, id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"test": attempt})
}

// GET /api/{reading,listening}/tests
func (h *ObjectiveHandler) List(c *gin.Context) {
	limit, offset := page(c)
	rows, err := h.objective.List(c.Request.Context(), h.skill, limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tests": rows})
}
