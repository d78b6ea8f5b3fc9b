package file_cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
)

type Result struct {
	Cutoff         time.Time `json:"cutoff"`
	SessionsPurged int       `json:"sessions_purged"`
	WritingsPurged int       `json:"writings_purged"`
	ObjectsDeleted int       `json:"objects_deleted"`
	ObjectsFailed  int       `json:"objects_failed"`
	TokensPurged   int64     `json:"tokens_purged"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	now := time.Now().UTC()
	res := &Result{Cutoff: now.AddDate(0, 0, -p.retentionDays)}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	jc.Progress("speaking", 10, "Purging deleted recordings")
	for {
		rows, err := p.sessions.ListPurgeable(dbc, res.Cutoff, batchSize)
		if err != nil {
			jc.Fail("speaking", err)
			return nil
		}
		if len(rows) == 0 {
			break
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, s := range rows {
			p.deleteObject(jc.Ctx, res, gcp.BucketSpeakingAudio, s.AudioBucketKey)
			ids = append(ids, s.ID)
		}
		if err := p.sessions.HardDelete(dbc, ids); err != nil {
			jc.Fail("speaking", err)
			return nil
		}
		res.SessionsPurged += len(ids)
		if len(rows) < batchSize {
			break
		}
	}

	jc.Progress("writing", 45, "Purging deleted essays")
	for {
		rows, err := p.submissions.ListPurgeable(dbc, res.Cutoff, batchSize)
		if err != nil {
			jc.Fail("writing", err)
			return nil
		}
		if len(rows) == 0 {
			break
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, w := range rows {
			p.deleteObject(jc.Ctx, res, gcp.BucketWritingScan, w.SourceBucketKey)
			ids = append(ids, w.ID)
		}
		if err := p.submissions.HardDelete(dbc, ids); err != nil {
			jc.Fail("writing", err)
			return nil
		}
		res.WritingsPurged += len(ids)
		if len(rows) < batchSize {
			break
		}
	}

	jc.Progress("tokens", 80, "Purging expired sessions")
	n, err := p.tokens.PurgeExpired(dbc, now)
	if err != nil {
		jc.Fail("tokens", err)
		return nil
	}
	res.TokensPurged = n

	p.log.Info("File cleanup finished",
		"sessions", res.SessionsPurged, "writings", res.WritingsPurged,
		"objects", res.ObjectsDeleted, "object_failures", res.ObjectsFailed, "tokens", res.TokensPurged)
	jc.Succeed("done", res)
	return nil
}

// deleteObject treats a missing object as already deleted. Other failures
// are counted and the row is purged anyway.
func (p *Pipeline) deleteObject(ctx context.Context, res *Result, category gcp.BucketCategory, key string) {
	if key == "" || p.bucket == nil {
		return
	}
	err := p.bucket.Delete(ctx, category, key)
	if err == nil || errors.Is(err, gcp.ErrObjectNotFound) {
		res.ObjectsDeleted++
		return
	}
	res.ObjectsFailed++
	p.log.Warn("Delete object failed", "category", string(category), "key", key, "error", err)
}
