package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/services"
)

type ContentHandler struct {
	content services.ContentService
}

func NewContentHandler(content services.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// adminView adds the answer key, which is never serialized on the item itself.
func adminView(c *gin.Context, item *types.ContentItem) gin.H {
	out := gin.H{"item": item}
	if ctxutil.GetRequestData(c.Request.Context()).IsAdmin() && len(item.AnswerKey) > 0 {
		out["answer_key"] = json.RawMessage(item.AnswerKey)
	}
	return out
}

// GET /api/content?skill=&kind=&module=&min_difficulty=&max_difficulty=&q=&limit=&offset=
func (h *ContentHandler) List(c *gin.Context) {
	limit, offset := page(c)
	items, total, err := h.content.List(c.Request.Context(), repos.ContentFilter{
		Skill:         c.Query("skill"),
		Kind:          c.Query("kind"),
		Module:        c.Query("module"),
		MinDifficulty: queryFloat(c, "min_difficulty"),
		MaxDifficulty: queryFloat(c, "max_difficulty"),
		Search:        c.Query("q"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items, "total": total})
}

// GET /api/content/:id
func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "invalid_content_item_id")
	if !ok {
		return
	}
	item, err := h.content.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, adminView(c, item))
}

type contentRequest struct {
	Skill      string          `json:"skill" binding:"required,oneof=listening reading writing speaking"`
	Kind       string          `json:"kind" binding:"required"`
	Module     string          `json:"module" binding:"omitempty,oneof=academic general"`
	Title      string          `json:"title" binding:"required,max=300"`
	Difficulty *float64        `json:"difficulty" binding:"omitempty,band"`
	Body       json.RawMessage `json:"body"`
	AnswerKey  json.RawMessage `json:"answer_key"`
	AudioURL   string          `json:"audio_url" binding:"omitempty,url"`
	Tags       string          `json:"tags" binding:"max=500"`
	Published  bool            `json:"published"`
}

// POST /api/content
func (h *ContentHandler) Create(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	item, err := h.content.Create(c.Request.Context(), services.ContentInput{
		Skill:      req.Skill,
		Kind:       req.Kind,
		Module:     req.Module,
		Title:      req.Title,
		Difficulty: req.Difficulty,
		Body:       req.Body,
		AnswerKey:  req.AnswerKey,
		AudioURL:   req.AudioURL,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, adminView(c, item))
}

// PATCH /api/content/:id
func (h *ContentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "invalid_content_item_id")
	if !ok {
		return
	}
	var req struct {
		Title      *string         `json:"title" binding:"omitempty,max=300"`
		Module     *string         `json:"module" binding:"omitempty,oneof=academic general"`
		Difficulty *float64        `json:"difficulty" binding:"omitempty,band"`
		Body       json.RawMessage `json:"body"`
		AnswerKey  json.RawMessage `json:"answer_key"`
		AudioURL   *string         `json:"audio_url"`
		Tags       *string         `json:"tags" binding:"omitempty,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	item, err := h.content.Update(c.Request.Context(), id, services.ContentPatch{
		Title:      req.Title,
		Module:     req.Module,
		Difficulty: req.Difficulty,
		Body:       req.Body,
		AnswerKey:  req.AnswerKey,
		AudioURL:   req.AudioURL,
		Tags:       req.Tags,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, adminView(c, item))
}

// DELETE /api/content/:id
func (h *ContentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "invalid_content_item_id")
	if !ok {
		return
	}
	if err := h.content.Delete(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/content/:id/publish {"published": bool}, default true
func (h *ContentHandler) Publish(c *gin.Context) {
	id, ok := pathID(c, "invalid_content_item_id")
	if !ok {
		return
	}
	var req struct {
		Published *bool `json:"published"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondBindError(c, err)
			return
		}
	}
	published := true
	if req.Published != nil {
		published = *req.Published
	}
	item, err := h.content.Publish(c.Request.Context(), id, published)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, adminView(c, item))
}

// POST /api/content/import (multipart field "file", xlsx)
func (h *ContentHandler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > services.MaxImportBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errTooLarge(services.MaxImportBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	res, err := h.content.Import(c.Request.Context(), f)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"import": res})
}
