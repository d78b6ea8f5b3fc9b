package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
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
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const (
	MaxWritingScanBytes = 20 << 20
	maxEssayChars       = 20000
)

type WritingSubmitInput struct {
	TaskType      string
	Prompt        string
	ContentItemID *uuid.UUID
	Text          string
	TimeSpentSec  int
}

type WritingService interface {
	SubmitText(ctx context.Context, in WritingSubmitInput) (*types.WritingSubmission, *types.JobRun, error)
	// SubmitScan stores a photo or PDF of a handwritten essay; OCR runs in the job.
	SubmitScan(ctx context.Context, in WritingSubmitInput, mimeType string, r io.Reader) (*types.WritingSubmission, *types.JobRun, error)
	Get(ctx context.Context, id uuid.UUID) (*types.WritingSubmission, error)
	List(ctx context.Context, limit, offset int) ([]*types.WritingSubmission, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type writingService struct {
	db          *gorm.DB
	log         *logger.Logger
	submissions repos.WritingSubmissionRepo
	content     repos.ContentItemRepo
	users       repos.UserRepo
	bucket      gcp.BucketService
	jobs        JobService
}

func NewWritingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	submissions repos.WritingSubmissionRepo,
	content repos.ContentItemRepo,
	users repos.UserRepo,
	bucket gcp.BucketService,
	jobs JobService,
) WritingService {
	return &writingService{
		db:          db,
		log:         baseLog.With("service", "WritingService"),
		submissions: submissions,
		content:     content,
		users:       users,
		bucket:      bucket,
		jobs:        jobs,
	}
}

func (s *writingService) SubmitText(ctx context.Context, in WritingSubmitInput) (*types.WritingSubmission, *types.JobRun, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil, apierr.BadRequest("empty_text", "text is required")
	}
	if len(text) > maxEssayChars {
		return nil, nil, apierr.BadRequest("text_too_long", fmt.Sprintf("text exceeds %d characters", maxEssayChars))
	}
	row, err := s.prepare(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	row.Text = text
	row.WordCount = scoring.CountWords(text)
	job, err := s.createAndEnqueue(ctx, row)
	if err != nil {
		return nil, nil, err
	}
	return row, job, nil
}

func (s *writingService) SubmitScan(ctx context.Context, in WritingSubmitInput, mimeType string, r io.Reader) (*types.WritingSubmission, *types.JobRun, error) {
	mimeType = baseMime(mimeType)
	if !strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf" {
		return nil, nil, apierr.New(http.StatusUnsupportedMediaType, "unsupported_media_type", fmt.Errorf("expected an image or pdf, got %q", mimeType))
	}
	row, err := s.prepare(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	raw, err := readCapped(r, MaxWritingScanBytes)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, apierr.BadRequest("empty_file", "scan file is empty")
	}
	row.ID = uuid.New()
	key := path.Join(row.UserID.String(), row.ID.String(), fmt.Sprintf("%d%s", time.Now().UnixNano(), extensionFor(mimeType)))
	if err := s.bucket.Upload(ctx, gcp.BucketWritingScan, key, mimeType, bytes.NewReader(raw)); err != nil {
		return nil, nil, fmt.Errorf("upload writing scan: %w", err)
	}
	row.SourceBucketKey = key
	row.SourceMime = mimeType
	job, err := s.createAndEnqueue(ctx, row)
	if err != nil {
		if derr := s.bucket.Delete(ctx, gcp.BucketWritingScan, key); derr != nil {
			s.log.Warn("Delete orphaned scan failed", "key", key, "error", derr)
		}
		return nil, nil, err
	}
	return row, job, nil
}

// prepare validates the task and resolves prompt and module.
func (s *writingService) prepare(ctx context.Context, in WritingSubmitInput) (*types.WritingSubmission, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	task := strings.ToLower(strings.TrimSpace(in.TaskType))
	if task != assessment.WritingTask1 && task != assessment.WritingTask2 {
		return nil, apierr.BadRequest("invalid_task_type", "task_type must be task1 or task2")
	}
	u, err := loadUser(ctx, s.users, uid)
	if err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(in.Prompt)
	module := u.ExamModule
	if in.ContentItemID != nil {
		item, err := publishedItem(ctx, s.content, *in.ContentItemID, types.SkillWriting)
		if err != nil {
			return nil, err
		}
		if prompt == "" {
			prompt = promptFromItem(item)
		}
		if item.Module != "" {
			module = item.Module
		}
	}
	if prompt == "" {
		return nil, apierr.BadRequest("missing_prompt", "prompt or content_item_id is required")
	}
	return &types.WritingSubmission{
		UserID:        uid,
		TaskType:      task,
		Module:        module,
		Prompt:        prompt,
		ContentItemID: in.ContentItemID,
		TimeSpentSec:  max(in.TimeSpentSec, 0),
		Status:        assessment.WritingStatusSubmitted,
	}, nil
}

func (s *writingService) createAndEnqueue(ctx context.Context, row *types.WritingSubmission) (*types.JobRun, error) {
	var job *types.JobRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.submissions.Create(inner, row); err != nil {
			return fmt.Errorf("create writing submission: %w", err)
		}
		var err error
		job, err = s.jobs.Enqueue(inner, row.UserID, types.JobTypeWritingEvaluate, "writing_submission", &row.ID, map[string]any{
			"submission_id": row.ID.String(),
		})
		if err != nil {
			return err
		}
		row.JobID = &job.ID
		return s.submissions.UpdateFields(inner, row.ID, map[string]interface{}{"job_id": job.ID})
	})
	if err != nil {
		return nil, err
	}
	dispatchAfterCommit(ctx, s.log, s.jobs, job)
	return job, nil
}

func (s *writingService) Get(ctx context.Context, id uuid.UUID) (*types.WritingSubmission, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.submissions.GetForUser(dbctx.Context{Ctx: ctx}, uid, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("writing_submission_not_found")
	}
	return row, nil
}

func (s *writingService) List(ctx context.Context, limit, offset int) ([]*types.WritingSubmission, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.submissions.ListByUser(dbctx.Context{Ctx: ctx}, uid, limit, offset)
}

func (s *writingService) Delete(ctx context.Context, id uuid.UUID) error {
	uid, err := requestUserID(ctx)
	if err != nil {
		return err
	}
	ok, err := s.submissions.SoftDelete(dbctx.Context{Ctx: ctx}, uid, id)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("writing_submission_not_found")
	}
	return nil
}
