package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type WritingHandler struct {
	writing services.WritingService
}

func NewWritingHandler(writing services.WritingService) *WritingHandler {
	return &WritingHandler{writing: writing}
}

// POST /api/writing/submissions
func (h *WritingHandler) SubmitText(c *gin.Context) {
	var req struct {
		TaskType      string     `json:"task_type" binding:"required,oneof=task1 task2"`
		Prompt        string     `json:"prompt" binding:"max=4000"`
		ContentItemID *uuid.UUID `json:"content_item_id"`
		Text          string     `json:"text" binding:"required"`
		TimeSpentSec  int        `json:"time_spent_sec" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	sub, job, err := h.writing.SubmitText(c.Request.Context(), services.WritingSubmitInput{
		TaskType:      req.TaskType,
		Prompt:        req.Prompt,
		ContentItemID: req.ContentItemID,
		Text:          req.Text,
		TimeSpentSec:  req.TimeSpentSec,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"submission": sub, "job": job})
}

// POST /api/writing/submissions/scan (multipart: "file", "task_type", "prompt", "content_item_id")
func (h *WritingHandler) SubmitScan(c *gin.Context) {
	in := services.WritingSubmitInput{
		TaskType: strings.TrimSpace(c.PostForm("task_type")),
		Prompt:   c.PostForm("prompt"),
	}
	if raw := strings.TrimSpace(c.PostForm("content_item_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_content_item_id", err)
			return
		}
		in.ContentItemID = &id
	}
	if raw := strings.TrimSpace(c.PostForm("time_spent_sec")); raw != "" {
		in.TimeSpentSec, _ = strconv.Atoi(raw)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > services.MaxWritingScanBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errTooLarge(services.MaxWritingScanBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	sub, job, err := h.writing.SubmitScan(c.Request.Context(), in, partMime(fh.Header.Get("Content-Type")), f)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"submission": sub, "job": job})
}

// GET /api/writing/submissions/:id
func (h *WritingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "invalid_submission_id")
	if !ok {
		return
	}
	sub, err := h.writing.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submission": sub})
}

// GET /api/writing/submissions
func (h *WritingHandler) List(c *gin.Context) {
	limit, offset := page(c)
	rows, err := h.writing.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": rows})
}

// DELETE /api/writing/submissions/:id
func (h *WritingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "invalid_submission_id")
	if !ok {
		return
	}
	if err := h.writing.Delete(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
