package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type SpeakingHandler struct {
	speaking services.SpeakingService
}

func NewSpeakingHandler(speaking services.SpeakingService) *SpeakingHandler {
	return &SpeakingHandler{speaking: speaking}
}

// POST /api/speaking/sessions
func (h *SpeakingHandler) CreateSession(c *gin.Context) {
	var req struct {
		Part          int        `json:"part" binding:"required,oneof=1 2 3"`
		Prompt        string     `json:"prompt" binding:"max=4000"`
		ContentItemID *uuid.UUID `json:"content_item_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	sess, err := h.speaking.CreateSession(c.Request.Context(), services.CreateSpeakingInput{
		Part:          req.Part,
		Prompt:        req.Prompt,
		ContentItemID: req.ContentItemID,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": sess})
}

// POST /api/speaking/sessions/:id/audio (multipart field "audio")
func (h *SpeakingHandler) UploadAudio(c *gin.Context) {
	id, ok := pathID(c, "invalid_session_id")
	if !ok {
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_audio", err)
		return
	}
	if fh.Size > services.MaxSpeakingAudioBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errTooLarge(services.MaxSpeakingAudioBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	sess, job, err := h.speaking.UploadAudio(c.Request.Context(), id, partMime(fh.Header.Get("Content-Type")), f)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"session": sess, "job": job})
}

// GET /api/speaking/sessions/:id
func (h *SpeakingHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "invalid_session_id")
	if !ok {
		return
	}
	sess, err := h.speaking.GetSession(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

// GET /api/speaking/sessions
func (h *SpeakingHandler) ListSessions(c *gin.Context) {
	limit, offset := page(c)
	rows, err := h.speaking.ListSessions(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": rows})
}

// DELETE /api/speaking/sessions/:id
func (h *SpeakingHandler) DeleteSession(c *gin.Context) {
	id, ok := pathID(c, "invalid_session_id")
	if !ok {
		return
	}
	if err := h.speaking.DeleteSession(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
