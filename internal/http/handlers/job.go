package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs?type=&limit=
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, c.Query("type"), queryInt(c, "limit", 20))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := pathID(c, "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, ok := pathID(c, "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.CancelForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/restart
func (h *JobHandler) RestartJob(c *gin.Context) {
	jobID, ok := pathID(c, "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.RestartForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
