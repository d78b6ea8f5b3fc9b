package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type TutorHandler struct {
	log   *logger.Logger
	tutor services.TutorService
}

func NewTutorHandler(log *logger.Logger, tutor services.TutorService) *TutorHandler {
	return &TutorHandler{log: log.With("handler", "TutorHandler"), tutor: tutor}
}

// POST /api/tutor/threads
func (h *TutorHandler) CreateThread(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"max=200"`
		Skill string `json:"skill" binding:"omitempty,oneof=listening reading writing speaking"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondBindError(c, err)
			return
		}
	}
	thread, err := h.tutor.CreateThread(c.Request.Context(), req.Title, req.Skill)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"thread": thread})
}

// GET /api/tutor/threads
func (h *TutorHandler) ListThreads(c *gin.Context) {
	threads, err := h.tutor.ListThreads(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

// GET /api/tutor/threads/:id/messages
func (h *TutorHandler) ListMessages(c *gin.Context) {
	id, ok := pathID(c, "invalid_thread_id")
	if !ok {
		return
	}
	msgs, err := h.tutor.ListMessages(c.Request.Context(), id, queryInt(c, "limit", 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// POST /api/tutor/threads/:id/messages
//
// With Accept: text/event-stream the reply is streamed as "delta" events
// followed by one "done" event carrying both stored messages.
func (h *TutorHandler) SendMessage(c *gin.Context) {
	id, ok := pathID(c, "invalid_thread_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}

	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		reply, err := h.tutor.SendMessage(c.Request.Context(), id, req.Content, nil)
		if err != nil {
			response.RespondServiceError(c, err)
			return
		}
		response.RespondCreated(c, reply)
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}
	onDelta := func(delta string) {
		if delta == "" {
			return
		}
		start()
		c.SSEvent("delta", gin.H{"text": delta})
		c.Writer.Flush()
	}

	reply, err := h.tutor.SendMessage(c.Request.Context(), id, req.Content, onDelta)
	if err != nil {
		if !started {
			response.RespondServiceError(c, err)
			return
		}
		h.log.Warn("Tutor stream failed", "thread_id", id, "error", err)
		code := "tutor_failed"
		if apiErr, ok := apierr.As(err); ok {
			code = apiErr.Code
		}
		c.SSEvent("error", gin.H{"code": code, "message": "The tutor could not finish this reply."})
		c.Writer.Flush()
		return
	}
	start()
	c.SSEvent("done", reply)
	c.Writer.Flush()
}

// DELETE /api/tutor/threads/:id
func (h *TutorHandler) DeleteThread(c *gin.Context) {
	id, ok := pathID(c, "invalid_thread_id")
	if !ok {
		return
	}
	if err := h.tutor.DeleteThread(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
