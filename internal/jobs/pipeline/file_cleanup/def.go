package file_cleanup

import (
	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const (
	DefaultRetentionDays = 30
	batchSize            = 200
)

type Pipeline struct {
	log           *logger.Logger
	sessions      repos.SpeakingSessionRepo
	submissions   repos.WritingSubmissionRepo
	tokens        repos.UserTokenRepo
	bucket        gcp.BucketService
	retentionDays int
}

func New(
	baseLog *logger.Logger,
	sessions repos.SpeakingSessionRepo,
	submissions repos.WritingSubmissionRepo,
	tokens repos.UserTokenRepo,
	bucket gcp.BucketService,
	retentionDays int,
) *Pipeline {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Pipeline{
		log:           baseLog.With("job", types.JobTypeFileCleanup),
		sessions:      sessions,
		submissions:   submissions,
		tokens:        tokens,
		bucket:        bucket,
		retentionDays: retentionDays,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeFileCleanup }
