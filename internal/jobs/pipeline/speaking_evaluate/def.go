package speaking_evaluate

import (
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/gcp"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

// Recordings up to this size are sent inline; larger ones by GCS URI.
const inlineAudioLimit = 10 << 20

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SpeakingSessionRepo
	bucket   gcp.BucketService
	speech   gcp.Speech
	examiner services.Examiner
	scores   services.ScoreRecorder
	language string
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.SpeakingSessionRepo,
	bucket gcp.BucketService,
	speech gcp.Speech,
	examiner services.Examiner,
	scores services.ScoreRecorder,
	language string,
) *Pipeline {
	if language == "" {
		language = "en-GB"
	}
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", types.JobTypeSpeakingEvaluate),
		sessions: sessions,
		bucket:   bucket,
		speech:   speech,
		examiner: examiner,
		scores:   scores,
		language: language,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeSpeakingEvaluate }
