package writing_evaluate

import (
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Pipeline struct {
	db          *gorm.DB
	log         *logger.Logger
	submissions repos.WritingSubmissionRepo
	bucket      gcp.BucketService
	ocr         gcp.OCR
	examiner    services.Examiner
	scores      services.ScoreRecorder
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	submissions repos.WritingSubmissionRepo,
	bucket gcp.BucketService,
	ocr gcp.OCR,
	examiner services.Examiner,
	scores services.ScoreRecorder,
) *Pipeline {
	return &Pipeline{
		db:          db,
		log:         baseLog.With("job", types.JobTypeWritingEvaluate),
		submissions: submissions,
		bucket:      bucket,
		ocr:         ocr,
		examiner:    examiner,
		scores:      scores,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeWritingEvaluate }
