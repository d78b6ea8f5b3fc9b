package writing_evaluate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/scoring"
	"github.com/yungbote/ielts-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	subID, ok := jc.PayloadUUID("submission_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing submission_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}
	sub, err := p.submissions.GetByID(dbc, subID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if sub == nil {
		jc.Fail("load", fmt.Errorf("writing submission %s not found", subID))
		return nil
	}
	if sub.Status == assessment.WritingStatusScored {
		jc.Succeed("done", map[string]any{"submission_id": sub.ID, "band": sub.Band, "already_scored": true})
		return nil
	}

	fail := func(stage string, err error) error {
		if uerr := p.submissions.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, sub.ID, map[string]interface{}{
			"status": assessment.WritingStatusFailed,
		}); uerr != nil {
			p.log.Warn("Mark submission failed", "submission_id", sub.ID, "error", uerr)
		}
		jc.Fail(stage, err)
		return nil
	}

	if err := p.submissions.UpdateFields(dbc, sub.ID, map[string]interface{}{"status": assessment.WritingStatusProcessing}); err != nil {
		return fail("load", err)
	}

	text := sub.Text
	ocrProvider := sub.OCRProvider
	if sub.SourceBucketKey != "" && strings.TrimSpace(text) == "" {
		jc.Progress("ocr", 15, "Reading your handwriting")
		res, err := p.extract(jc, sub)
		if err != nil {
			return fail("ocr", err)
		}
		text = res.Text
		ocrProvider = res.Provider
		if err := p.submissions.UpdateFields(dbc, sub.ID, map[string]interface{}{
			"text":         text,
			"ocr_provider": ocrProvider,
		}); err != nil {
			return fail("ocr", err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return fail("ocr", fmt.Errorf("no text found in the submission"))
	}
	words := scoring.CountWords(text)

	jc.Progress("score", 50, "Examiner is marking")
	verdict, err := p.examiner.ScoreWriting(jc.Ctx, services.WritingInput{
		TaskType:  sub.TaskType,
		Module:    sub.Module,
		Prompt:    sub.Prompt,
		Text:      text,
		WordCount: words,
	})
	if err != nil {
		return fail("score", err)
	}

	now := time.Now().UTC()
	criteriaJSON, _ := json.Marshal(verdict.Criteria)
	corrections := verdict.Corrections
	if corrections == nil {
		corrections = []services.Correction{}
	}
	correctionsJSON, _ := json.Marshal(corrections)
	feedback := verdict.Feedback
	if verdict.UnderLength {
		feedback = fmt.Sprintf("Your response has %d words, below the %d required, so the task score is capped at 5.\n\n%s",
			words, scoring.MinWords(sub.TaskType), feedback)
	}
	attempt := services.Attempt{
		UserID:        sub.UserID,
		Skill:         types.SkillWriting,
		Band:          verdict.Band,
		CriteriaBands: verdict.Criteria,
		At:            now,
	}

	jc.Progress("record", 90, "Saving your score")
	err = p.db.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: jc.Ctx, Tx: tx}
		if err := p.submissions.UpdateFields(inner, sub.ID, map[string]interface{}{
			"status":         assessment.WritingStatusScored,
			"word_count":     words,
			"criteria_bands": datatypes.JSON(criteriaJSON),
			"corrections":    datatypes.JSON(correctionsJSON),
			"band":           verdict.Band,
			"feedback":       feedback,
			"scored_at":      now,
		}); err != nil {
			return err
		}
		_, err := p.scores.Record(inner, attempt)
		return err
	})
	if err != nil {
		return fail("record", err)
	}
	p.scores.Announce(jc.Ctx, attempt, "writing_submission", sub.ID)

	jc.Succeed("done", map[string]any{
		"submission_id": sub.ID,
		"band":          verdict.Band,
		"word_count":    words,
		"under_length":  verdict.UnderLength,
		"ocr_provider":  ocrProvider,
	})
	return nil
}

func (p *Pipeline) extract(jc *jobrt.Context, sub *types.WritingSubmission) (*gcp.OCRResult, error) {
	if p.ocr == nil {
		return nil, fmt.Errorf("ocr is not configured")
	}
	rc, err := p.bucket.Download(jc.Ctx, gcp.BucketWritingScan, sub.SourceBucketKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(io.LimitReader(rc, services.MaxWritingScanBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > services.MaxWritingScanBytes {
		return nil, fmt.Errorf("scan exceeds %d bytes", services.MaxWritingScanBytes)
	}
	return p.ocr.Extract(jc.Ctx, raw, sub.SourceMime)
}
