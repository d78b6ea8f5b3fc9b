package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo
	JobRun    repos.JobRunRepo

	SpeakingSession   repos.SpeakingSessionRepo
	WritingSubmission repos.WritingSubmissionRepo
	ReadingTest       repos.ReadingTestRepo
	ListeningTest     repos.ListeningTestRepo
	UserProgress      repos.UserProgressRepo

	ContentItem    repos.ContentItemRepo
	LearningPath   repos.LearningPathRepo
	Recommendation repos.RecommendationRepo

	TutorThread  repos.TutorThreadRepo
	TutorMessage repos.TutorMessageRepo
	VocabCard    repos.VocabCardRepo
	Snapshot     repos.SnapshotRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),
		JobRun:    repos.NewJobRunRepo(db, log),

		SpeakingSession:   repos.NewSpeakingSessionRepo(db, log),
		WritingSubmission: repos.NewWritingSubmissionRepo(db, log),
		ReadingTest:       repos.NewReadingTestRepo(db, log),
		ListeningTest:     repos.NewListeningTestRepo(db, log),
		UserProgress:      repos.NewUserProgressRepo(db, log),

		ContentItem:    repos.NewContentItemRepo(db, log),
		LearningPath:   repos.NewLearningPathRepo(db, log),
		Recommendation: repos.NewRecommendationRepo(db, log),

		TutorThread:  repos.NewTutorThreadRepo(db, log),
		TutorMessage: repos.NewTutorMessageRepo(db, log),
		VocabCard:    repos.NewVocabCardRepo(db, log),
		Snapshot:     repos.NewSnapshotRepo(db, log),
	}
}
