package speaking_evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
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
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing session_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}
	sess, err := p.sessions.GetByID(dbc, sessionID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if sess == nil {
		jc.Fail("load", fmt.Errorf("speaking session %s not found", sessionID))
		return nil
	}
	// A newer upload re-enqueued the session; this run is stale.
	if sess.JobID != nil && *sess.JobID != jc.Job.ID {
		jc.Succeed("superseded", map[string]any{"session_id": sess.ID, "superseded": true})
		return nil
	}

	fail := func(stage string, err error) error {
		if uerr := p.sessions.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, sess.ID, map[string]interface{}{
			"status":   assessment.SpeakingStatusFailed,
			"feedback": "We could not score this recording. Please try uploading it again.",
		}); uerr != nil {
			p.log.Warn("Mark session failed", "session_id", sess.ID, "error", uerr)
		}
		jc.Fail(stage, err)
		return nil
	}

	if err := p.sessions.UpdateFields(dbc, sess.ID, map[string]interface{}{"status": assessment.SpeakingStatusProcessing}); err != nil {
		return fail("load", err)
	}

	jc.Progress("download", 10, "Fetching your recording")
	audio, err := p.download(jc, sess)
	if err != nil {
		return fail("download", err)
	}

	var acoustic *scoring.AcousticFeatures
	if feats, err := scoring.AnalyzeWAV(audio); err == nil {
		acoustic = feats
	} else if !errors.Is(err, scoring.ErrNotPCMWAV) {
		p.log.Warn("WAV analysis failed", "session_id", sess.ID, "error", err)
	}

	jc.Progress("transcribe", 30, "Transcribing")
	req := gcp.SpeechRequest{MimeType: sess.AudioMime, LanguageCode: p.language}
	if acoustic != nil {
		req.SampleRateHz = acoustic.SampleRate
	}
	if len(audio) <= inlineAudioLimit {
		req.Audio = audio
	} else {
		req.GCSURI = p.bucket.GCSURI(gcp.BucketSpeakingAudio, sess.AudioBucketKey)
	}
	tr, err := p.speech.Transcribe(jc.Ctx, req)
	if err != nil {
		return fail("transcribe", err)
	}
	if tr == nil || tr.Text == "" {
		return fail("transcribe", fmt.Errorf("no speech recognized"))
	}

	jc.Progress("metrics", 55, "Measuring fluency")
	words := make([]scoring.TimedWord, 0, len(tr.Words))
	for _, w := range tr.Words {
		words = append(words, scoring.TimedWord{Text: w.Text, StartSec: w.StartSec, EndSec: w.EndSec})
	}
	fallback := 0.0
	if acoustic != nil {
		fallback = acoustic.DurationSec
	}
	metrics := scoring.AnalyzeFluency(words, fallback)

	jc.Progress("score", 70, "Examiner is marking")
	verdict, err := p.examiner.ScoreSpeaking(jc.Ctx, services.SpeakingInput{
		Part:       sess.Part,
		Prompt:     sess.Prompt,
		Transcript: tr.Text,
		Metrics:    metrics,
		Acoustic:   acoustic,
	})
	if err != nil {
		return fail("score", err)
	}

	now := time.Now().UTC()
	metricsJSON, _ := json.Marshal(map[string]any{
		"fluency":        metrics,
		"acoustic":       acoustic,
		"stt_confidence": tr.Confidence,
	})
	criteriaJSON, _ := json.Marshal(verdict.Criteria)
	band := verdict.Band
	attempt := services.Attempt{
		UserID:        sess.UserID,
		Skill:         types.SkillSpeaking,
		Band:          band,
		CriteriaBands: verdict.Criteria,
		At:            now,
	}

	jc.Progress("record", 90, "Saving your score")
	err = p.db.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: jc.Ctx, Tx: tx}
		if err := p.sessions.UpdateFields(inner, sess.ID, map[string]interface{}{
			"status":         assessment.SpeakingStatusScored,
			"transcript":     tr.Text,
			"duration_sec":   metrics.DurationSec,
			"metrics":        datatypes.JSON(metricsJSON),
			"criteria_bands": datatypes.JSON(criteriaJSON),
			"band":           band,
			"feedback":       verdict.Feedback,
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
	p.scores.Announce(jc.Ctx, attempt, "speaking_session", sess.ID)

	jc.Succeed("done", map[string]any{
		"session_id": sess.ID,
		"band":       band,
		"criteria":   verdict.Criteria,
	})
	return nil
}

func (p *Pipeline) download(jc *jobrt.Context, sess *types.SpeakingSession) ([]byte, error) {
	if sess.AudioBucketKey == "" {
		return nil, fmt.Errorf("session has no audio")
	}
	rc, err := p.bucket.Download(jc.Ctx, gcp.BucketSpeakingAudio, sess.AudioBucketKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(io.LimitReader(rc, services.MaxSpeakingAudioBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > services.MaxSpeakingAudioBytes {
		return nil, fmt.Errorf("recording exceeds %d bytes", services.MaxSpeakingAudioBytes)
	}
	return raw, nil
}
