package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/http/response"
)

// pathID parses the :id route parameter, responding 400 on failure.
func pathID(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, key string) *float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func page(c *gin.Context) (limit, offset int) {
	return queryInt(c, "limit", 20), queryInt(c, "offset", 0)
}

// partMime returns the declared content type of a multipart file part.
func partMime(header string) string {
	mt := strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	return strings.ToLower(mt)
}

func errTooLarge(limit int64) error {
	return fmt.Errorf("file exceeds %d bytes", limit)
}

var errMissingSession = errors.New("missing session")
