package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type VocabHandler struct {
	vocab services.VocabService
}

func NewVocabHandler(vocab services.VocabService) *VocabHandler {
	return &VocabHandler{vocab: vocab}
}

// POST /api/vocabulary
func (h *VocabHandler) AddCard(c *gin.Context) {
	var req struct {
		Word       string `json:"word" binding:"required,max=100"`
		Definition string `json:"definition" binding:"max=1000"`
		Example    string `json:"example" binding:"max=1000"`
		Topic      string `json:"topic" binding:"max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	card, err := h.vocab.AddCard(c.Request.Context(), services.VocabInput{
		Word:       req.Word,
		Definition: req.Definition,
		Example:    req.Example,
		Topic:      req.Topic,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"card": card})
}

// GET /api/vocabulary
func (h *VocabHandler) List(c *gin.Context) {
	limit, offset := page(c)
	cards, err := h.vocab.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cards": cards})
}

// GET /api/vocabulary/due
func (h *VocabHandler) ListDue(c *gin.Context) {
	cards, total, err := h.vocab.ListDue(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cards": cards, "due": total})
}

// POST /api/vocabulary/:id/review {"quality": 0..5}
func (h *VocabHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "invalid_card_id")
	if !ok {
		return
	}
	var req struct {
		Quality *int `json:"quality" binding:"required,gte=0,lte=5"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	card, err := h.vocab.Review(c.Request.Context(), id, *req.Quality)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"card": card})
}

// DELETE /api/vocabulary/:id
func (h *VocabHandler) DeleteCard(c *gin.Context) {
	id, ok := pathID(c, "invalid_card_id")
	if !ok {
		return
	}
	if err := h.vocab.DeleteCard(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
