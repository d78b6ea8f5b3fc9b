package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos/analytics"
	"github.com/yungbote/ielts-backend/internal/data/repos/assessment"
	"github.com/yungbote/ielts-backend/internal/data/repos/auth"
	"github.com/yungbote/ielts-backend/internal/data/repos/content"
	"github.com/yungbote/ielts-backend/internal/data/repos/jobs"
	"github.com/yungbote/ielts-backend/internal/data/repos/learning"
	"github.com/yungbote/ielts-backend/internal/data/repos/progress"
	"github.com/yungbote/ielts-backend/internal/data/repos/tutor"
	"github.com/yungbote/ielts-backend/internal/data/repos/user"
	"github.com/yungbote/ielts-backend/internal/data/repos/vocab"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type JobRunRepo = jobs.JobRunRepo

type SpeakingSessionRepo = assessment.SpeakingSessionRepo
type WritingSubmissionRepo = assessment.WritingSubmissionRepo
type ReadingTestRepo = assessment.ReadingTestRepo
type ListeningTestRepo = assessment.ListeningTestRepo

type UserProgressRepo = progress.UserProgressRepo
type ContentItemRepo = content.ContentItemRepo
type ContentFilter = content.Filter

type LearningPathRepo = learning.LearningPathRepo
type RecommendationRepo = learning.RecommendationRepo

type TutorThreadRepo = tutor.TutorThreadRepo
type TutorMessageRepo = tutor.TutorMessageRepo

type VocabCardRepo = vocab.VocabCardRepo
type SnapshotRepo = analytics.SnapshotRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}

func NewSpeakingSessionRepo(db *gorm.DB, baseLog *logger.Logger) SpeakingSessionRepo {
	return assessment.NewSpeakingSessionRepo(db, baseLog)
}

func NewWritingSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) WritingSubmissionRepo {
	return assessment.NewWritingSubmissionRepo(db, baseLog)
}

func NewReadingTestRepo(db *gorm.DB, baseLog *logger.Logger) ReadingTestRepo {
	return assessment.NewReadingTestRepo(db, baseLog)
}

func NewListeningTestRepo(db *gorm.DB, baseLog *logger.Logger) ListeningTestRepo {
	return assessment.NewListeningTestRepo(db, baseLog)
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return progress.NewUserProgressRepo(db, baseLog)
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return content.NewContentItemRepo(db, baseLog)
}

func NewLearningPathRepo(db *gorm.DB, baseLog *logger.Logger) LearningPathRepo {
	return learning.NewLearningPathRepo(db, baseLog)
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	return learning.NewRecommendationRepo(db, baseLog)
}

func NewTutorThreadRepo(db *gorm.DB, baseLog *logger.Logger) TutorThreadRepo {
	return tutor.NewTutorThreadRepo(db, baseLog)
}

func NewTutorMessageRepo(db *gorm.DB, baseLog *logger.Logger) TutorMessageRepo {
	return tutor.NewTutorMessageRepo(db, baseLog)
}

func NewVocabCardRepo(db *gorm.DB, baseLog *logger.Logger) VocabCardRepo {
	return vocab.NewVocabCardRepo(db, baseLog)
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return analytics.NewSnapshotRepo(db, baseLog)
}
