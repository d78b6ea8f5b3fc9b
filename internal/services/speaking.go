package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const MaxSpeakingAudioBytes = 25 << 20

type CreateSpeakingInput struct {
	Part          int
	Prompt        string
	ContentItemID *uuid.UUID
}

type SpeakingService interface {
	CreateSession(ctx context.Context, in CreateSpeakingInput) (*types.SpeakingSession, error)
	// UploadAudio stores the recording and queues speaking_evaluate.
	UploadAudio(ctx context.Context, sessionID uuid.UUID, mimeType string, r io.Reader) (*types.SpeakingSession, *types.JobRun, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*types.SpeakingSession, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*types.SpeakingSession, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

type speakingService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SpeakingSessionRepo
	content  repos.ContentItemRepo
	bucket   gcp.BucketService
	jobs     JobService
}

func NewSpeakingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.SpeakingSessionRepo,
	content repos.ContentItemRepo,
	bucket gcp.BucketService,
	jobs JobService,
) SpeakingService {
	return &speakingService{
		db:       db,
		log:      baseLog.With("service", "SpeakingService"),
		sessions: sessions,
		content:  content,
		bucket:   bucket,
		jobs:     jobs,
	}
}

func (s *speakingService) CreateSession(ctx context.Context, in CreateSpeakingInput) (*types.SpeakingSession, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if in.Part < 1 || in.Part > 3 {
		return nil, apierr.BadRequest("invalid_part", "part must be 1, 2 or 3")
	}
	prompt := strings.TrimSpace(in.Prompt)
	if in.ContentItemID != nil {
		item, err := publishedItem(ctx, s.content, *in.ContentItemID, types.SkillSpeaking)
		if err != nil {
			return nil, err
		}
		if prompt == "" {
			prompt = promptFromItem(item)
		}
	}
	if prompt == "" {
		return nil, apierr.BadRequest("missing_prompt", "prompt or content_item_id is required")
	}
	row := &types.SpeakingSession{
		UserID:        uid,
		Part:          in.Part,
		Prompt:        prompt,
		ContentItemID: in.ContentItemID,
		Status:        assessment.SpeakingStatusCreated,
	}
	if err := s.sessions.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, fmt.Errorf("create speaking session: %w", err)
	}
	return row, nil
}

func (s *speakingService) UploadAudio(ctx context.Context, sessionID uuid.UUID, mimeType string, r io.Reader) (*types.SpeakingSession, *types.JobRun, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, nil, err
	}
	mimeType = baseMime(mimeType)
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, nil, apierr.New(http.StatusUnsupportedMediaType, "unsupported_media_type", fmt.Errorf("expected audio/*, got %q", mimeType))
	}
	row, err := s.sessions.GetForUser(dbctx.Context{Ctx: ctx}, uid, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, apierr.NotFound("speaking_session_not_found")
	}
	switch row.Status {
	case assessment.SpeakingStatusCreated, assessment.SpeakingStatusFailed:
	default:
		return nil, nil, apierr.Conflict("session_locked", "audio was already uploaded for this session")
	}
	raw, err := readCapped(r, MaxSpeakingAudioBytes)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, apierr.BadRequest("empty_file", "audio file is empty")
	}

	key := path.Join(uid.String(), row.ID.String(), fmt.Sprintf("%d%s", time.Now().UnixNano(), extensionFor(mimeType)))
	if err := s.bucket.Upload(ctx, gcp.BucketSpeakingAudio, key, mimeType, bytes.NewReader(raw)); err != nil {
		return nil, nil, fmt.Errorf("upload speaking audio: %w", err)
	}
	oldKey := row.AudioBucketKey

	var job *types.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		job, err = s.jobs.Enqueue(inner, uid, types.JobTypeSpeakingEvaluate, "speaking_session", &row.ID, map[string]any{
			"session_id": row.ID.String(),
		})
		if err != nil {
			return err
		}
		return s.sessions.UpdateFields(inner, row.ID, map[string]interface{}{
			"status":           assessment.SpeakingStatusUploaded,
			"audio_bucket_key": key,
			"audio_mime":       mimeType,
			"job_id":           job.ID,
			"band":             nil,
			"criteria_bands":   nil,
			"feedback":         "",
		})
	})
	if err != nil {
		return nil, nil, err
	}
	dispatchAfterCommit(ctx, s.log, s.jobs, job)
	if oldKey != "" && oldKey != key {
		if err := s.bucket.Delete(ctx, gcp.BucketSpeakingAudio, oldKey); err != nil {
			s.log.Warn("Delete replaced audio failed", "key", oldKey, "error", err)
		}
	}

	row.Status = assessment.SpeakingStatusUploaded
	row.AudioBucketKey = key
	row.AudioMime = mimeType
	row.JobID = &job.ID
	row.Band = nil
	row.CriteriaBands = nil
	row.Feedback = ""
	return row, job, nil
}

func (s *speakingService) GetSession(ctx context.Context, sessionID uuid.UUID) (*types.SpeakingSession, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.sessions.GetForUser(dbctx.Context{Ctx: ctx}, uid, sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("speaking_session_not_found")
	}
	return row, nil
}

func (s *speakingService) ListSessions(ctx context.Context, limit, offset int) ([]*types.SpeakingSession, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.sessions.ListByUser(dbctx.Context{Ctx: ctx}, uid, limit, offset)
}

// DeleteSession soft-deletes; the audio object is removed by file_cleanup
// after the retention window.
func (s *speakingService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	uid, err := requestUserID(ctx)
	if err != nil {
		return err
	}
	ok, err := s.sessions.SoftDelete(dbctx.Context{Ctx: ctx}, uid, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("speaking_session_not_found")
	}
	return nil
}

// publishedItem loads a content item a student may practice with.
func publishedItem(ctx context.Context, content repos.ContentItemRepo, id uuid.UUID, skill string) (*types.ContentItem, error) {
	item, err := content.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.Published {
		return nil, apierr.NotFound("content_item_not_found")
	}
	if item.Skill != skill {
		return nil, apierr.BadRequest("content_skill_mismatch", fmt.Sprintf("content item is for %s, not %s", item.Skill, skill))
	}
	return item, nil
}

func promptFromItem(item *types.ContentItem) string {
	var body map[string]any
	if len(item.Body) > 0 && json.Unmarshal(item.Body, &body) == nil {
		for _, k := range []string{"prompt", "question", "text"} {
			if v, ok := body[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return item.Title
}

func dispatchAfterCommit(ctx context.Context, log *logger.Logger, jobs JobService, job *types.JobRun) {
	if job == nil {
		return
	}
	if err := jobs.Dispatch(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
		log.Warn("Job dispatch failed; worker will pick it up", "job_id", job.ID, "job_type", job.JobType, "error", err)
	}
}

func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxBytes))
	}
	return raw, nil
}

func baseMime(m string) string {
	parsed, _, err := mime.ParseMediaType(m)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(m))
	}
	return parsed
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
