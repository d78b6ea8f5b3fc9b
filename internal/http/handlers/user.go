package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.Me(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// PATCH /api/me
func (uh *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FirstName  *string  `json:"first_name" binding:"omitempty,max=100"`
		LastName   *string  `json:"last_name" binding:"omitempty,max=100"`
		TargetBand *float64 `json:"target_band" binding:"omitempty,band"`
		ExamModule *string  `json:"exam_module" binding:"omitempty,oneof=academic general"`
		// ExamDate is YYYY-MM-DD; an empty string clears it.
		ExamDate   *string `json:"exam_date"`
		EmailOptIn *bool   `json:"email_opt_in"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	in := services.ProfileUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		TargetBand: req.TargetBand,
		ExamModule: req.ExamModule,
		EmailOptIn: req.EmailOptIn,
	}
	if req.ExamDate != nil {
		raw := strings.TrimSpace(*req.ExamDate)
		if raw == "" {
			in.ClearDate = true
		} else {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				response.RespondError(c, http.StatusBadRequest, "invalid_exam_date", err)
				return
			}
			in.ExamDate = &d
		}
	}
	me, err := uh.userService.UpdateProfile(c.Request.Context(), in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// POST /api/me/avatar (multipart field "file")
func (uh *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > services.MaxAvatarBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errTooLarge(services.MaxAvatarBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	me, err := uh.userService.UploadAvatar(c.Request.Context(), f)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}
